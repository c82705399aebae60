package api

import (
	"errors"
	"net/http"

	"github.com/ncnews/ncnews-backend/internal/news"
)

func statusFor(kind news.Kind) int {
	switch kind {
	case news.KindMalformedIdentifier,
		news.KindInvalidSortColumn,
		news.KindInvalidOrderDirection,
		news.KindInvalidPagination,
		news.KindInvalidCommentFormat,
		news.KindInvalidVoteDelta,
		news.KindInvalidTopicObject,
		news.KindMissingField,
		news.KindBadRequest:
		return http.StatusBadRequest
	case news.KindArticleNotFound,
		news.KindCommentNotFound,
		news.KindUserNotFound,
		news.KindTopicNotFound,
		news.KindNotFound,
		news.KindRouteNotFound:
		return http.StatusNotFound
	case news.KindTopicExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError maps a classified failure to its status and message.
// Unclassified failures become a bare 500 and are logged with their cause.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var e *news.Error
	if !errors.As(err, &e) {
		h.logger.Errorw("Unhandled error",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestID(r),
			"error", err,
		)
		h.writeError(w, http.StatusInternalServerError, news.MsgInternal)
		return
	}

	status := statusFor(e.Kind)
	if status == http.StatusInternalServerError {
		h.logger.Errorw("Request failed",
			"kind", e.Kind.String(),
			"path", r.URL.Path,
			"request_id", requestID(r),
			"error", err,
		)
		h.writeError(w, status, news.MsgInternal)
		return
	}

	h.logger.Debugw("Request rejected",
		"kind", e.Kind.String(),
		"status", status,
		"path", r.URL.Path,
		"error", err,
	)
	h.writeError(w, status, e.Msg)
}
