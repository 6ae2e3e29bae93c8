// Package services holds the business operations behind the HTTP handlers. Services
// check permissions, validate input, call the repositories and shape the views.
package services

import (
	"context"
	"time"

	"github.com/rpupo63/inkwell-backend/cache"
	"github.com/rpupo63/inkwell-backend/database"
	"github.com/rpupo63/inkwell-backend/events"
	"github.com/rpupo63/inkwell-backend/notify"
	"github.com/rpupo63/inkwell-backend/storage"
)

// Deps are the collaborators built once in main. Optional ones default to no-ops.
type Deps struct {
	Store   database.Store
	Objects storage.ObjectStore
	Cache   cache.BlogCache
	Events  events.Publisher
	Mailer  notify.Mailer
	Now     func() time.Time
}

type Services struct {
	Blogs    *BlogService
	Comments *CommentService
	Likes    *LikeService
	Follows  *FollowService
	Profiles *ProfileService
}

func New(d Deps) *Services {
	if d.Cache == nil {
		d.Cache = cache.Noop{}
	}
	if d.Events == nil {
		d.Events = events.Noop{}
	}
	if d.Mailer == nil {
		d.Mailer = notify.Noop{}
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}

	return &Services{
		Blogs:    NewBlogService(d),
		Comments: NewCommentService(d),
		Likes:    NewLikeService(d),
		Follows:  NewFollowService(d),
		Profiles: NewProfileService(d),
	}
}

// Shutdown waits for background work started by requests, such as follow emails.
func (s *Services) Shutdown(ctx context.Context) error {
	return s.Follows.Wait(ctx)
}

// ActionResult is the generic acknowledgement body.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func ok(message string) ActionResult {
	return ActionResult{Success: true, Message: message}
}

func ptr[T any](v T) *T { return &v }
