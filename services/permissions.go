package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/rpupo63/inkwell-backend/database"
	"github.com/rpupo63/inkwell-backend/errs"
	"github.com/rpupo63/inkwell-backend/models"
)

// Primary authors and co-authors have equal edit rights.
func canEditBlog(ctx context.Context, blogs database.BlogRepository, blogID, userID uuid.UUID) (bool, error) {
	return blogs.IsAuthor(ctx, blogID, userID)
}

func ownsComment(c *models.Comment, userID uuid.UUID) bool {
	return c != nil && c.UserID == userID
}

// Unpublished blogs are visible to their authors only.
func canViewBlog(view *database.BlogView, userID uuid.UUID) bool {
	return view != nil && (view.IsPublished || view.HasAuthor(userID))
}

// canFollow returns nil when userID may follow target.
func canFollow(ctx context.Context, users database.UserRepository, target, userID uuid.UUID) error {
	if target == userID {
		return errs.NewBadRequestError("You cannot follow yourself")
	}
	exists, err := users.Exists(ctx, target)
	if err != nil {
		return errs.NewDatabaseError("find", "user", err)
	}
	if !exists {
		return errs.NewNotFoundError("User not found")
	}
	return nil
}

// Helpers shared by the blog, like and comment services.

func errBlogNotFound() error {
	return errs.NewNotFoundError("blog not found")
}

// visibleBlog loads the detail view and applies the visibility rule, reporting
// hidden blogs exactly like missing ones.
func visibleBlog(ctx context.Context, blogs database.BlogRepository, blogID, userID uuid.UUID) (*database.BlogView, error) {
	view, err := blogs.Detail(ctx, blogID)
	if err != nil {
		return nil, errs.NewDatabaseError("find", "blog", err)
	}
	if !canViewBlog(view, userID) {
		return nil, errBlogNotFound()
	}
	return view, nil
}

// publishedBlog loads a blog that must be published, as required for likes and comments.
func publishedBlog(ctx context.Context, blogs database.BlogRepository, blogID uuid.UUID) (*models.Blog, error) {
	blog, err := blogs.FindByID(ctx, blogID)
	if err != nil {
		return nil, errs.NewDatabaseError("find", "blog", err)
	}
	if blog == nil || !blog.IsPublished {
		return nil, errBlogNotFound()
	}
	return blog, nil
}
