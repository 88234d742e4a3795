package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	Username string `json:"username"`
}

func (c *Controller) initUserRoutes(g routeGroup) {
	g.POST("/users", c.CreateUser)
	g.GET("/users", c.ListUsers)
	g.GET("/users/:id/next-image", c.NextImage)
}

// CreateUser registers a reviewer.
func (c *Controller) CreateUser(ctx echo.Context) error {
	var req CreateUserRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	user, err := c.Store.Users.Create(ctx.Request().Context(), req.Username)
	if err != nil {
		return c.fail(ctx, err, "Failed to create user")
	}
	return ctx.JSON(http.StatusCreated, user)
}

// ListUsers returns every reviewer.
func (c *Controller) ListUsers(ctx echo.Context) error {
	users, err := c.Store.Users.List(ctx.Request().Context())
	if err != nil {
		return c.fail(ctx, err, "Failed to list users")
	}
	return ctx.JSON(http.StatusOK, orEmpty(users))
}
