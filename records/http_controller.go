package records

import (
	"net/http"

	"github.com/goliatone/go-router"

	auth "github.com/goliatone/go-service-auth"
)

// RegisterRoutes mounts the service record endpoints on app. Every route
// requires a session.
func RegisterRoutes[T any](app router.Router[T], controller *Controller) {
	protected := controller.Auther.ProtectedRoute()

	app.Post("/", controller.Create, protected).SetName("records.create")
	app.Get("/", controller.List, protected).SetName("records.list")
	app.Get("/upcoming", controller.Upcoming, protected).SetName("records.upcoming")
	app.Get("/delivered", controller.DeliveredReport, protected).SetName("records.delivered")
	app.Get("/phone/:phone", controller.FindByPhone, protected).SetName("records.by-phone")
	app.Get("/:billNo", controller.Get, protected).SetName("records.get")
	app.Put("/:billNo/status", controller.UpdateStatus, protected).SetName("records.update-status")
	app.Delete("/:billNo", controller.Delete, protected).SetName("records.delete")
}

type Controller struct {
	Service *Service
	Auther  *auth.RouteAuthenticator
	Logger  auth.Logger
}

func NewController(service *Service, auther *auth.RouteAuthenticator, logger auth.Logger) *Controller {
	if service == nil {
		panic("Missing Service in records controller...")
	}
	if auther == nil {
		panic("Missing RouteAuthenticator in records controller...")
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &Controller{
		Service: service,
		Auther:  auther,
		Logger:  logger,
	}
}

func (c *Controller) Create(ctx router.Context) error {
	payload := new(CreateInput)
	if err := ctx.Bind(payload); err != nil {
		c.Logger.Debug("failed to parse payload: %v", err)
		return c.Auther.HandleError(ctx, auth.WrapAs(auth.ErrValidationFailed, "failed to parse request body"))
	}

	record, err := c.Service.Create(ctx.Context(), auth.PrincipalFromRouter(ctx), *payload)
	if err != nil {
		return c.Auther.HandleError(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, router.ViewContext{
		"success": true,
		"message": "Service record created",
		"record":  record,
	})
}

// List answers GET /?status=<status>
func (c *Controller) List(ctx router.Context) error {
	var status *Status
	if raw := ctx.Query("status", ""); raw != "" {
		parsed, err := ParseStatus(raw)
		if err != nil {
			return c.Auther.HandleError(ctx, err)
		}
		status = &parsed
	}

	found, err := c.Service.List(ctx.Context(), auth.PrincipalFromRouter(ctx), status)
	if err != nil {
		return c.Auther.HandleError(ctx, err)
	}

	return c.records(ctx, found)
}

func (c *Controller) Get(ctx router.Context) error {
	record, err := c.Service.GetByBillNo(ctx.Context(), auth.PrincipalFromRouter(ctx), ctx.Param("billNo"))
	if err != nil {
		return c.Auther.HandleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"success": true,
		"record":  record,
	})
}

func (c *Controller) FindByPhone(ctx router.Context) error {
	found, err := c.Service.FindByPhone(ctx.Context(), auth.PrincipalFromRouter(ctx), ctx.Param("phone"))
	if err != nil {
		return c.Auther.HandleError(ctx, err)
	}
	return c.records(ctx, found)
}

type statusPayload struct {
	Status string `json:"status" form:"status"`
}

func (c *Controller) UpdateStatus(ctx router.Context) error {
	payload := new(statusPayload)
	if err := ctx.Bind(payload); err != nil {
		return c.Auther.HandleError(ctx, auth.WrapAs(auth.ErrValidationFailed, "failed to parse request body"))
	}

	record, err := c.Service.UpdateStatus(ctx.Context(), auth.PrincipalFromRouter(ctx), ctx.Param("billNo"), payload.Status)
	if err != nil {
		return c.Auther.HandleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"success": true,
		"message": "Status updated",
		"record":  record,
	})
}

func (c *Controller) Delete(ctx router.Context) error {
	if err := c.Service.Delete(ctx.Context(), auth.PrincipalFromRouter(ctx), ctx.Param("billNo")); err != nil {
		return c.Auther.HandleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"success": true,
		"message": "Service record deleted",
	})
}

func (c *Controller) Upcoming(ctx router.Context) error {
	found, err := c.Service.UpcomingEstimations(ctx.Context(), auth.PrincipalFromRouter(ctx))
	if err != nil {
		return c.Auther.HandleError(ctx, err)
	}
	return c.records(ctx, found)
}

func (c *Controller) DeliveredReport(ctx router.Context) error {
	found, err := c.Service.DeliveredReport(ctx.Context(), auth.PrincipalFromRouter(ctx))
	if err != nil {
		return c.Auther.HandleError(ctx, err)
	}
	return c.records(ctx, found)
}

func (c *Controller) records(ctx router.Context, found []*ServiceRecord) error {
	return ctx.JSON(router.StatusOK, router.ViewContext{
		"success": true,
		"count":   len(found),
		"records": found,
	})
}
