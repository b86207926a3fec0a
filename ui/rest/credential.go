package rest

import (
	domainCredential "github.com/AzielCF/az-post/domains/credential"
	"github.com/AzielCF/az-post/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Credential struct {
	Service domainCredential.ICredentialUsecase
}

func InitRestCredential(app fiber.Router, service domainCredential.ICredentialUsecase) Credential {
	rest := Credential{Service: service}
	app.Put("/credentials/:user_id", rest.Upsert)
	app.Get("/credentials/:user_id", rest.List)
	app.Delete("/credentials/:user_id/:id", rest.Delete)
	return rest
}

func (controller *Credential) Upsert(c *fiber.Ctx) error {
	var request domainCredential.UpsertCredentialRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)
	request.UserID = c.Params("user_id")

	cred, err := controller.Service.Upsert(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	// AccessToken is json:"-" on the domain type, so the stored token never
	// travels back to the client.
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success store credential",
		Results: cred,
	})
}

func (controller *Credential) List(c *fiber.Ctx) error {
	creds, err := controller.Service.List(c.UserContext(), c.Params("user_id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch credentials",
		Results: creds,
	})
}

func (controller *Credential) Delete(c *fiber.Ctx) error {
	err := controller.Service.Delete(c.UserContext(), c.Params("user_id"), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success delete credential",
	})
}
