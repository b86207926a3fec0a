package rest

import (
	domainRecurrence "github.com/AzielCF/az-post/domains/recurrence"
	"github.com/AzielCF/az-post/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Schedule struct {
	Service domainRecurrence.IScheduleUsecase
}

func InitRestSchedule(app fiber.Router, service domainRecurrence.IScheduleUsecase) Schedule {
	rest := Schedule{Service: service}
	app.Get("/schedule/:user_id", rest.GetRule)
	app.Put("/schedule/:user_id", rest.UpdateRule)
	app.Post("/schedule/:user_id/content", rest.ScheduleContent)
	return rest
}

func (controller *Schedule) GetRule(c *fiber.Ctx) error {
	rule, err := controller.Service.GetRule(c.UserContext(), c.Params("user_id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch recurrence rule",
		Results: rule,
	})
}

func (controller *Schedule) UpdateRule(c *fiber.Ctx) error {
	var request domainRecurrence.UpdateRuleRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	rule, err := controller.Service.UpdateRule(c.UserContext(), c.Params("user_id"), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success update recurrence rule",
		Results: rule,
	})
}

func (controller *Schedule) ScheduleContent(c *fiber.Ctx) error {
	var request domainRecurrence.ScheduleContentRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)
	request.UserID = c.Params("user_id")

	response, err := controller.Service.ScheduleContent(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success schedule content",
		Results: response,
	})
}
