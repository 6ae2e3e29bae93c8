package api

import (
	"net/http"
	"strconv"

	"github.com/rpupo63/inkwell-backend/errs"
	"github.com/rpupo63/inkwell-backend/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type blogHandler struct {
	responder Responder
	logger    zerolog.Logger
	blogs     *services.BlogService
	likes     *services.LikeService
}

func newBlogHandler(blogs *services.BlogService, likes *services.LikeService) blogHandler {
	logger := log.With().Str("handlerName", "blogHandler").Logger()

	return blogHandler{
		responder: NewResponder(logger),
		logger:    logger,
		blogs:     blogs,
		likes:     likes,
	}
}

// getTags lists the blog tag vocabulary
// @Summary Available blog tags
// @Tags Blogs
// @Produce json
// @Success 200 {array} string
// @Router /blogs/tags [get]
func (h blogHandler) getTags() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.responder.WriteJSON(w, services.AvailableTags())
	}
}

// searchBlogs lists published blogs
// @Summary Search blogs
// @Description Lists published blogs, newest first. Every given filter must match; tags must all be present.
// @Tags Blogs
// @Produce json
// @Param query query string false "Text matched against title, description and content"
// @Param author query string false "Author username or display name"
// @Param tags query string false "Comma separated tags"
// @Param skip query int false "Offset" default(0)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} services.BlogList
// @Failure 400 {object} ErrorResponse "Bad Request - Invalid paging or tags"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /blogs [get]
func (h blogHandler) searchBlogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := pageQuery(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		q := r.URL.Query()
		list, err := h.blogs.Search(r.Context(), services.SearchInput{
			Query:  q.Get("query"),
			Author: q.Get("author"),
			Tags:   csvQuery(r, "tags"),
		}, page)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, list)
	}
}

// createBlog creates a blog with the caller as primary author
// @Summary Create blog
// @Description Unknown tags are dropped. Co-author ids that are invalid, duplicated, the caller or unknown users are skipped.
// @Tags Blogs
// @Accept json
// @Produce json
// @Param blog body services.CreateBlogInput true "Blog data"
// @Success 201 {object} services.CreateBlogResult
// @Failure 400 {object} ErrorResponse "Bad Request - Invalid blog data"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /blogs [post]
func (h blogHandler) createBlog() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		var in services.CreateBlogInput
		if err := decodeJSON(w, r, &in); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		res, err := h.blogs.Create(r.Context(), userID, in)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteCreated(w, res)
	}
}

// recommendedBlogs lists published blogs matching all of the caller's interests
// @Summary Recommended blogs
// @Tags Blogs
// @Produce json
// @Param skip query int false "Offset" default(0)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} services.BlogList
// @Router /blogs/recommended [get]
func (h blogHandler) recommendedBlogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		page, err := pageQuery(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		list, err := h.blogs.Recommended(r.Context(), userID, page)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, list)
	}
}

// userBlogs lists the blogs a user authored
// @Summary Blogs by user
// @Description include_unpublished is honored only for the caller's own blogs.
// @Tags Blogs
// @Produce json
// @Param userID path string true "Author ID" format(uuid)
// @Param include_unpublished query bool false "Include drafts"
// @Success 200 {object} services.BlogList
// @Failure 400 {object} ErrorResponse "Bad Request - Invalid userID"
// @Router /blogs/user/{userID} [get]
func (h blogHandler) userBlogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		callerUserID, err := callerID(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		authorID, err := uuidParam(r, "userID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		page, err := pageQuery(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		includeUnpublished := false
		if raw := r.URL.Query().Get("include_unpublished"); raw != "" {
			if includeUnpublished, err = strconv.ParseBool(raw); err != nil {
				h.responder.WriteError(w, errs.NewInvalidFieldError("include_unpublished", "include_unpublished must be a boolean"))
				return
			}
		}

		list, err := h.blogs.ByUser(r.Context(), callerUserID, authorID, includeUnpublished, page)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, list)
	}
}

// getBlog retrieves a blog with its authors and like and comment counts
// @Summary Get blog
// @Tags Blogs
// @Produce json
// @Param blogID path string true "Blog ID" format(uuid)
// @Success 200 {object} database.BlogView
// @Failure 400 {object} ErrorResponse "Bad Request - Invalid blogID"
// @Failure 404 {object} ErrorResponse "Not Found - Missing, or unpublished and not yours"
// @Router /blogs/{blogID} [get]
func (h blogHandler) getBlog() http.HandlerFunc {
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

		view, err := h.blogs.Get(r.Context(), userID, blogID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, view)
	}
}

// updateBlog applies a partial update
// @Summary Update blog
// @Description Authors only. A present co_author_ids replaces every co-author.
// @Tags Blogs
// @Accept json
// @Produce json
// @Param blogID path string true "Blog ID" format(uuid)
// @Param blog body services.UpdateBlogInput true "Fields to change"
// @Success 200 {object} database.BlogView
// @Failure 400 {object} ErrorResponse "Bad Request - Invalid blog data"
// @Failure 403 {object} ErrorResponse "Forbidden - Not an author"
// @Failure 404 {object} ErrorResponse "Not Found"
// @Router /blogs/{blogID} [put]
func (h blogHandler) updateBlog() http.HandlerFunc {
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

		var in services.UpdateBlogInput
		if err := decodeJSON(w, r, &in); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		view, err := h.blogs.Update(r.Context(), userID, blogID, in)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, view)
	}
}

// deleteBlog removes a blog with its authors, likes and comments
// @Summary Delete blog
// @Tags Blogs
// @Produce json
// @Param blogID path string true "Blog ID" format(uuid)
// @Success 200 {object} services.ActionResult
// @Failure 403 {object} ErrorResponse "Forbidden - Not an author"
// @Failure 404 {object} ErrorResponse "Not Found"
// @Router /blogs/{blogID} [delete]
func (h blogHandler) deleteBlog() http.HandlerFunc {
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

		res, err := h.blogs.Delete(r.Context(), userID, blogID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, res)
	}
}

// uploadCover stores a cover image for a blog
// @Summary Upload blog cover image
// @Description JPEG, PNG, GIF or WebP up to 10MB in the multipart field "file". Replaces any previous cover.
// @Tags Blogs
// @Accept multipart/form-data
// @Produce json
// @Param blogID path string true "Blog ID" format(uuid)
// @Param file formData file true "Image"
// @Success 200 {object} services.CoverImageResult
// @Failure 400 {object} ErrorResponse "Bad Request - Invalid file"
// @Failure 503 {object} ErrorResponse "Service Unavailable - Storage not configured"
// @Router /blogs/{blogID}/cover-image [post]
func (h blogHandler) uploadCover() http.HandlerFunc {
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
		img, err := readImage(w, r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		res, err := h.blogs.UploadCover(r.Context(), userID, blogID, img)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, res)
	}
}

// @Summary Delete blog cover image
// @Tags Blogs
// @Produce json
// @Param blogID path string true "Blog ID" format(uuid)
// @Success 200 {object} services.ActionResult
// @Failure 404 {object} ErrorResponse "Not Found - No cover image"
// @Router /blogs/{blogID}/cover-image [delete]
func (h blogHandler) deleteCover() http.HandlerFunc {
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

		res, err := h.blogs.DeleteCover(r.Context(), userID, blogID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, res)
	}
}

// toggleLike likes a published blog or removes the caller's like
// @Summary Toggle like
// @Tags Likes
// @Produce json
// @Param blogID path string true "Blog ID" format(uuid)
// @Success 200 {object} services.LikeResult
// @Failure 404 {object} ErrorResponse "Not Found - Missing or unpublished blog"
// @Router /blogs/{blogID}/like [post]
func (h blogHandler) toggleLike() http.HandlerFunc {
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

		res, err := h.likes.Toggle(r.Context(), userID, blogID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, res)
	}
}

// @Summary Like stats
// @Tags Likes
// @Produce json
// @Param blogID path string true "Blog ID" format(uuid)
// @Success 200 {object} services.LikeStats
// @Router /blogs/{blogID}/likes [get]
func (h blogHandler) likeStats() http.HandlerFunc {
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

		stats, err := h.likes.Stats(r.Context(), userID, blogID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, stats)
	}
}
