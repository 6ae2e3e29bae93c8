package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rpupo63/inkwell-backend/errs"
	"github.com/rpupo63/inkwell-backend/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type commentHandler struct {
	responder Responder
	logger    zerolog.Logger
	comments  *services.CommentService
}

func newCommentHandler(comments *services.CommentService) commentHandler {
	logger := log.With().Str("handlerName", "commentHandler").Logger()

	return commentHandler{
		responder: NewResponder(logger),
		logger:    logger,
		comments:  comments,
	}
}

func placement(req CreateCommentRequest) (services.Placement, error) {
	if req.ParentCommentID == nil || strings.TrimSpace(*req.ParentCommentID) == "" {
		return services.Root(), nil
	}
	parentID, err := uuid.Parse(strings.TrimSpace(*req.ParentCommentID))
	if err != nil {
		return services.Placement{}, errs.NewBadRequestErrorWithField("invalid parent_comment_id", "parent_comment_id")
	}
	return services.ReplyTo(parentID), nil
}

// createComment adds a comment or a reply to a published blog
// @Summary Create comment
// @Description Replies must target a root comment of the same blog; replies to replies are rejected.
// @Tags Comments
// @Accept json
// @Produce json
// @Param blogID path string true "Blog ID" format(uuid)
// @Param comment body CreateCommentRequest true "Comment"
// @Success 201 {object} services.CommentResult
// @Failure 400 {object} ErrorResponse "Bad Request - Invalid content or parent"
// @Failure 404 {object} ErrorResponse "Not Found - Missing or unpublished blog"
// @Router /blogs/{blogID}/comments [post]
func (h commentHandler) createComment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		blogID, err := uuidParam(r, "blogID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		var req CreateCommentRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		at, err := placement(req)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		res, err := h.comments.Create(r.Context(), userID, blogID, at, req.Content)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteCreated(w, res)
	}
}

// listComments pages root comments with their replies
// @Summary List comments
// @Tags Comments
// @Produce json
// @Param blogID path string true "Blog ID" format(uuid)
// @Param skip query int false "Offset" default(0)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} services.CommentList
// @Router /blogs/{blogID}/comments [get]
func (h commentHandler) listComments() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		blogID, err := uuidParam(r, "blogID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		page, err := pageQuery(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		list, err := h.comments.List(r.Context(), userID, blogID, page)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, list)
	}
}

// @Summary Edit own comment
// @Tags Comments
// @Accept json
// @Produce json
// @Param commentID path string true "Comment ID" format(uuid)
// @Param comment body UpdateCommentRequest true "New content"
// @Success 200 {object} services.CommentResult
// @Failure 403 {object} ErrorResponse "Forbidden - Not your comment"
// @Router /blogs/comments/{commentID} [put]
func (h commentHandler) updateComment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		commentID, err := uuidParam(r, "commentID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		var req UpdateCommentRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		res, err := h.comments.Update(r.Context(), userID, commentID, req.Content)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, res)
	}
}

// @Summary Delete own comment
// @Description Deleting a root comment removes its replies.
// @Tags Comments
// @Produce json
// @Param commentID path string true "Comment ID" format(uuid)
// @Success 200 {object} services.CommentResult
// @Failure 403 {object} ErrorResponse "Forbidden - Not your comment"
// @Router /blogs/comments/{commentID} [delete]
func (h commentHandler) deleteComment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		commentID, err := uuidParam(r, "commentID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		res, err := h.comments.Delete(r.Context(), userID, commentID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, res)
	}
}
