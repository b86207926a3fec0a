package rest

import (
	domainContent "github.com/AzielCF/az-post/domains/content"
	"github.com/AzielCF/az-post/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Content struct {
	Service domainContent.IContentUsecase
}

func InitRestContent(app fiber.Router, service domainContent.IContentUsecase) Content {
	rest := Content{Service: service}
	app.Post("/content/:user_id", rest.Create)
	app.Get("/content/:user_id", rest.List)
	app.Get("/content/:user_id/:id", rest.Get)
	app.Patch("/content/:user_id/:id", rest.Update)
	app.Delete("/content/:user_id/:id", rest.Delete)
	return rest
}

func (controller *Content) Create(c *fiber.Ctx) error {
	var request domainContent.CreateContentRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)
	request.UserID = c.Params("user_id")

	item, err := controller.Service.Create(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success create content",
		Results: item,
	})
}

func (controller *Content) List(c *fiber.Ctx) error {
	items, err := controller.Service.List(c.UserContext(), c.Params("user_id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch content",
		Results: items,
	})
}

func (controller *Content) Get(c *fiber.Ctx) error {
	item, err := controller.Service.Get(c.UserContext(), c.Params("user_id"), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch content item",
		Results: item,
	})
}

func (controller *Content) Update(c *fiber.Ctx) error {
	var request domainContent.UpdateContentRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)
	request.ID = c.Params("id")
	request.UserID = c.Params("user_id")

	item, err := controller.Service.Update(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success update content",
		Results: item,
	})
}

func (controller *Content) Delete(c *fiber.Ctx) error {
	err := controller.Service.Delete(c.UserContext(), c.Params("user_id"), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success delete content",
	})
}
