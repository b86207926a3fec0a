package rest

import (
	"time"

	domainPost "github.com/AzielCF/az-post/domains/post"
	"github.com/AzielCF/az-post/pkg/utils"
	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"
)

type Posts struct {
	Timeline domainPost.ITimelineUsecase
	Dispatch domainPost.IDispatchUsecase
}

func InitRestPosts(app fiber.Router, timeline domainPost.ITimelineUsecase, dispatch domainPost.IDispatchUsecase) Posts {
	rest := Posts{Timeline: timeline, Dispatch: dispatch}
	app.Get("/posts/:user_id", rest.List)
	app.Get("/posts/:user_id/timeline", rest.GetTimeline)
	app.Delete("/posts/:user_id/:id", rest.Cancel)
	app.Post("/posts/:id/publish", rest.PublishNow)
	app.Post("/dispatch/run", rest.RunCycle)
	return rest
}

func (controller *Posts) List(c *fiber.Ctx) error {
	posts, err := controller.Timeline.List(c.UserContext(), c.Params("user_id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch scheduled posts",
		Results: posts,
	})
}

func (controller *Posts) GetTimeline(c *fiber.Ctx) error {
	now := time.Now()
	buckets, err := controller.Timeline.Timeline(c.UserContext(), c.Params("user_id"), now)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch timeline",
		Results: fiber.Map{
			"buckets":      buckets,
			"generated_at": now.UTC(),
			"next_post_in": nextPostHint(buckets, now),
		},
	})
}

// nextPostHint renders the nearest upcoming post as a human phrase
// ("in 2 days") for the timeline header.
func nextPostHint(buckets domainPost.TimelineBuckets, now time.Time) string {
	var next time.Time
	for _, group := range [][]domainPost.ScheduledPost{
		buckets.Today, buckets.Tomorrow, buckets.ThisWeek, buckets.Later,
	} {
		for _, p := range group {
			if p.Status != domainPost.StatusPending || !p.ScheduledAt.After(now) {
				continue
			}
			if next.IsZero() || p.ScheduledAt.Before(next) {
				next = p.ScheduledAt
			}
		}
	}
	if next.IsZero() {
		return ""
	}
	return humanize.Time(next)
}

func (controller *Posts) Cancel(c *fiber.Ctx) error {
	err := controller.Timeline.Cancel(c.UserContext(), c.Params("user_id"), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success cancel scheduled post",
	})
}

func (controller *Posts) PublishNow(c *fiber.Ctx) error {
	post, err := controller.Dispatch.PostNow(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success publish post",
		Results: post,
	})
}

func (controller *Posts) RunCycle(c *fiber.Ctx) error {
	result, err := controller.Dispatch.RunCycle(c.UserContext(), c.Query("user_id"), time.Now())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success run dispatch cycle",
		Results: result,
	})
}
