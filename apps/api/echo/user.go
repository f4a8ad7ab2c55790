package echoapi

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/peerhive/backend/core"
	"github.com/peerhive/backend/core/request"
	"github.com/peerhive/backend/core/user"
)

var errUsrNotFoundInCtx = errors.New("user object not found in echo.Context")

type userApi struct {
	svc      *user.Service
	validate *validator.Validate
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *user.Service, validate *validator.Validate) {
	api := userApi{
		svc:      svc,
		validate: validate,
	}

	ug := g.Group("/users")

	// un-authed endpoints
	ug.POST("/login", api.login)
	ug.POST("/signup", api.signup)

	// authed endpoints
	ag := ug.Group("", jwt)
	ag.POST("/token-refresh", api.refreshToken)
	ag.GET("", api.query, adminMiddleware())
	ag.POST("", api.create, adminMiddleware())
	ag.GET("/roles", api.queryRoles, adminMiddleware())

	// detail endpoints
	dg := ag.Group("/:id", ctxUserOrAdminMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy, adminMiddleware())
	dg.PATCH("/role", api.changeRole, adminMiddleware())
	dg.POST("/approve", api.approveAdvisor, adminMiddleware())
	dg.POST("/reject", api.rejectAdvisor, adminMiddleware())
	dg.PUT("/subjects", api.setSubjects)

	g.GET("/admin/stats", api.stats, jwt, adminMiddleware())
}

// Handlers

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := authenticate(data.Email, data.Password, api.svc)
	if err != nil {
		return err
	}
	token, err := GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	usr, err := api.svc.GetByID(claims.Subject)
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: &usr})
}

// signup self-registers a user. Advisor applications may attach a kardex
// file as `multipart/form-data`; plain JSON works for everything else.
func (api *userApi) signup(ctx echo.Context) error {
	data, err := bindNewUser(ctx)
	if err != nil {
		return err
	}
	if err = data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Signup(data)
	if err != nil {
		return errors.Wrap(err, "signing up user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

// create registers a user on behalf of an admin; advisor accounts created
// this way skip the review queue.
func (api *userApi) create(ctx echo.Context) error {
	data, err := bindNewUser(ctx)
	if err != nil {
		return err
	}
	if err = data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Create(data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) query(ctx echo.Context) error {
	users, err := api.svc.QueryAll()
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) retrieve(ctx echo.Context) error {
	usr, ok := ctx.Get("object").(user.User)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) update(ctx echo.Context) error {
	usr, ok := ctx.Get("object").(user.User)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}

	var data user.UpdateProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.UpdateProfile(usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) destroy(ctx echo.Context) error {
	usr, ok := ctx.Get("object").(user.User)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}

	// Say No to Suicide! ctxUser cannot delete themselves
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if usr.ID == ctxUsr.ID {
		return errHttpForbidden
	}

	if err := api.svc.Delete(usr.ID); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) changeRole(ctx echo.Context) error {
	usr, ok := ctx.Get("object").(user.User)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}

	var data user.ChangeRole
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangeRole")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.ChangeRole(usr.ID, data.Role)
	if err != nil {
		return errors.Wrap(err, "changing role")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) approveAdvisor(ctx echo.Context) error {
	usr, ok := ctx.Get("object").(user.User)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}

	usr, err := api.svc.ApproveAdvisor(usr.ID)
	if err != nil {
		return errors.Wrap(err, "approving advisor")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) rejectAdvisor(ctx echo.Context) error {
	usr, ok := ctx.Get("object").(user.User)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}

	usr, err := api.svc.RejectAdvisor(usr.ID)
	if err != nil {
		return errors.Wrap(err, "rejecting advisor")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) setSubjects(ctx echo.Context) error {
	usr, ok := ctx.Get("object").(user.User)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}

	var data SubjectsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubjectsRequest")
	}

	usr, err := api.svc.SetSubjects(usr.ID, data.Subjects)
	if err != nil {
		if errors.Cause(err) == user.ErrNotAdvisor {
			return errHttpForbidden
		}
		return errors.Wrap(err, "setting subjects")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}

func (api *userApi) stats(ctx echo.Context) error {
	stats, err := api.svc.Stats()
	if err != nil {
		return errors.Wrap(err, "computing stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func ctxUserOrAdminMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctxUsr, err := getContextUser(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}

			if ctx.Param("id") == ctxUsr.ID || ctxUsr.IsAdmin() {
				if usr, err := svc.GetByID(ctx.Param("id")); err == nil {
					ctx.Set("object", usr)
					return next(ctx)
				} else if errors.Cause(err) != user.ErrNotFound {
					return errors.Wrap(err, "finding user by ID")
				}
			}
			return errHttpNotFound
		}
	}
}

func bindNewUser(ctx echo.Context) (user.NewUser, error) {
	var data user.NewUser

	cType := ctx.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(cType, echo.MIMEMultipartForm) {
		if err := ctx.Bind(&data); err != nil {
			return data, errors.Wrap(err, "binding to NewUser")
		}
		return data, nil
	}

	data.Name = ctx.FormValue("name")
	data.Email = ctx.FormValue("email")
	data.Password = ctx.FormValue("password")
	data.PasswordConfirm = ctx.FormValue("password_confirm")
	data.Role = ctx.FormValue("role")
	data.AdvisorSubject = ctx.FormValue("advisor_subject")

	fh, err := ctx.FormFile("kardex")
	if err != nil {
		if errors.Cause(err) == http.ErrMissingFile {
			return data, nil
		}
		return data, errors.Wrap(err, "reading kardex file")
	}

	f, err := fh.Open()
	if err != nil {
		return data, errors.Wrap(err, "opening kardex file")
	}
	defer f.Close()

	kardex, err := request.ProcessKardex(fh.Filename, fh.Size, f)
	if err != nil {
		return data, errors.Wrap(err, "processing kardex file")
	}
	data.AdvisorKardex = kardex
	return data, nil
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string     `json:"token"`
		User  *user.User `json:"user,omitempty"`
	}

	SubjectsRequest struct {
		Subjects []string `json:"subjects"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}
