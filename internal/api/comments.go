package api

import (
	"net/http"

	"github.com/ncnews/ncnews-backend/internal/news"
)

func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	articleID, err := pathID(r, "article_id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	q := r.URL.Query()
	comments, err := h.svc.ListComments(r.Context(), articleID, news.PageParams{
		Limit: q.Get("limit"),
		Page:  q.Get("p"),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, CommentsResponse{Comments: comments})
}

func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	articleID, err := pathID(r, "article_id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var in news.NewCommentInput
	if err := h.decodeJSON(w, r, &in); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	comment, err := h.svc.CreateComment(r.Context(), articleID, in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, CommentResponse{Comment: comment})
}

// VoteComment answers 200: the comment already exists.
func (h *Handler) VoteComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "comment_id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	delta, err := h.voteDelta(w, r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	comment, err := h.svc.VoteComment(r.Context(), id, delta)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, CommentResponse{Comment: comment})
}

func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "comment_id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if err := h.svc.DeleteComment(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
