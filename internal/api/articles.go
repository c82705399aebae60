package api

import (
	"net/http"

	"github.com/ncnews/ncnews-backend/internal/news"
)

func (h *Handler) ListArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	articles, err := h.svc.ListArticles(r.Context(), news.ArticleListParams{
		Topic:  q.Get("topic"),
		SortBy: q.Get("sort_by"),
		Order:  q.Get("order"),
		Limit:  q.Get("limit"),
		Page:   q.Get("p"),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ArticlesResponse{Articles: articles})
}

func (h *Handler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	var in news.NewArticleInput
	if err := h.decodeJSON(w, r, &in); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	article, err := h.svc.CreateArticle(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, ArticleResponse{Article: article})
}

func (h *Handler) GetArticle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "article_id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	article, err := h.svc.GetArticle(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ArticleResponse{Article: article})
}

func (h *Handler) VoteArticle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "article_id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	delta, err := h.voteDelta(w, r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	article, err := h.svc.VoteArticle(r.Context(), id, delta)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ArticleResponse{Article: article})
}

func (h *Handler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "article_id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if err := h.svc.DeleteArticle(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) voteDelta(w http.ResponseWriter, r *http.Request) (int, error) {
	var req VoteRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		return 0, err
	}
	return news.ParseVoteDelta(req.IncVotes)
}
