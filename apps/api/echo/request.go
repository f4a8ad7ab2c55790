package echoapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/peerhive/backend/core"
	"github.com/peerhive/backend/core/request"
	"github.com/peerhive/backend/core/user"
)

// GraphStatus is the read-only view of the Graph collaborator the API needs.
type GraphStatus interface {
	HasAuthorization() bool
}

type requestApi struct {
	users    *user.Service
	svc      *request.Service
	graph    GraphStatus
	validate *validator.Validate
}

func registerRequestAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	users *user.Service,
	svc *request.Service,
	graph GraphStatus,
	validate *validator.Validate,
) {
	api := requestApi{
		users:    users,
		svc:      svc,
		graph:    graph,
		validate: validate,
	}

	rg := g.Group("/requests", jwt)
	rg.GET("", api.queryRequests)
	rg.GET("/pool", api.queryPool)
	rg.POST("", api.createRequest)
	rg.POST("/:id/assign", api.assignAdvisor)

	sg := g.Group("/sessions", jwt)
	sg.GET("", api.querySessions)
	sg.GET("/upcoming", api.queryUpcomingSessions)

	cg := g.Group("/chats", jwt)
	cg.GET("", api.queryChats)
	cg.GET("/:id", api.retrieveChat)
	cg.POST("/:id/messages", api.sendMessage)

	g.GET("/graph/status", api.graphStatus, jwt)
}

// Handlers

func (api *requestApi) queryRequests(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	reqs, err := api.svc.ListForUser(usr)
	if err != nil {
		return errors.Wrap(err, "querying requests")
	}
	return ctx.JSON(http.StatusOK, reqs)
}

// queryPool serves the advisor panel: the unassigned pool narrowed to the
// advisor's configured subjects.
func (api *requestApi) queryPool(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !usr.CanAdvise() {
		return errHttpForbidden
	}

	pool, err := api.svc.PoolForAdvisor(usr)
	if err != nil {
		return errors.Wrap(err, "querying request pool")
	}
	return ctx.JSON(http.StatusOK, pool)
}

func (api *requestApi) createRequest(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data request.NewRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRequest")
	}
	// only admins may file a request on another student's behalf
	if !usr.IsAdmin() || data.StudentID == "" {
		data.StudentID = usr.ID
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	req, err := api.svc.Create(data)
	if err != nil {
		return errors.Wrap(err, "creating request")
	}
	return ctx.JSON(http.StatusCreated, req)
}

func (api *requestApi) assignAdvisor(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !usr.CanAdvise() {
		return errHttpForbidden
	}

	var data AssignRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignRequest")
	}
	// advisors always assign themselves; admins may assign someone else
	advisorID := usr.ID
	if usr.IsAdmin() && data.AdvisorID != "" {
		advisorID = data.AdvisorID
	}

	assignment, err := api.svc.AssignAdvisor(ctx.Param("id"), advisorID)
	if err != nil {
		switch errors.Cause(err) {
		case request.ErrNotFound:
			return errHttpNotFound
		case request.ErrAlreadyProcessed:
			return errRequestProcessed
		}
		return errors.Wrap(err, "assigning advisor")
	}
	return ctx.JSON(http.StatusOK, assignment)
}

func (api *requestApi) querySessions(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	sessions, err := api.svc.VisibleSessions(usr)
	if err != nil {
		return errors.Wrap(err, "querying sessions")
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *requestApi) queryUpcomingSessions(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	limit := 0
	if raw := ctx.QueryParam("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			return core.NewValidationError(nil, core.FieldError{Field: "limit", Error: "must be a non-negative integer"})
		}
	}

	sessions, err := api.svc.UpcomingSessions(usr, limit)
	if err != nil {
		return errors.Wrap(err, "querying upcoming sessions")
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *requestApi) queryChats(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	chats, err := api.svc.ChatsForUser(usr)
	if err != nil {
		return errors.Wrap(err, "querying chats")
	}
	return ctx.JSON(http.StatusOK, chats)
}

func (api *requestApi) retrieveChat(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	chat, err := api.getVisibleChat(ctx.Param("id"), usr)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, chat)
}

// sendMessage posts a message to a chat. An attachment may be sent as
// `multipart/form-data` (fields `text` + `file`); plain JSON otherwise.
func (api *requestApi) sendMessage(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	chat, err := api.getVisibleChat(ctx.Param("id"), usr)
	if err != nil {
		return err
	}

	data, err := bindNewMessage(ctx)
	if err != nil {
		return err
	}
	if err = data.Validate(); err != nil {
		return err
	}

	msg, err := api.svc.SendMessage(chat.ID, usr.ID, data.Text, data.Attachment)
	if err != nil {
		if errors.Cause(err) == request.ErrChatNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "sending message")
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (api *requestApi) graphStatus(ctx echo.Context) error {
	authorized := api.graph != nil && api.graph.HasAuthorization()
	return ctx.JSON(http.StatusOK, GraphStatusResponse{Authorized: authorized})
}

func (api *requestApi) getVisibleChat(id string, usr user.User) (request.Chat, error) {
	chat, err := api.svc.GetChat(id)
	if err != nil {
		if errors.Cause(err) == request.ErrChatNotFound {
			return request.Chat{}, errHttpNotFound
		}
		return request.Chat{}, errors.Wrap(err, "finding chat by ID")
	}
	if !request.CanView(usr, chat) {
		return request.Chat{}, errHttpNotFound
	}
	return chat, nil
}

func bindNewMessage(ctx echo.Context) (request.NewMessage, error) {
	var data request.NewMessage

	cType := ctx.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(cType, echo.MIMEMultipartForm) {
		if err := ctx.Bind(&data); err != nil {
			return data, errors.Wrap(err, "binding to NewMessage")
		}
		return data, nil
	}

	data.Text = ctx.FormValue("text")

	fh, err := ctx.FormFile("file")
	if err != nil {
		if errors.Cause(err) == http.ErrMissingFile {
			return data, nil
		}
		return data, errors.Wrap(err, "reading attachment file")
	}

	f, err := fh.Open()
	if err != nil {
		return data, errors.Wrap(err, "opening attachment file")
	}
	defer f.Close()

	attachment, err := request.ProcessAttachment(fh.Filename, fh.Header.Get(echo.HeaderContentType), fh.Size, f)
	if err != nil {
		return data, errors.Wrap(err, "processing attachment file")
	}
	data.Attachment = attachment
	return data, nil
}

type (
	AssignRequest struct {
		AdvisorID string `json:"advisorId"`
	}

	GraphStatusResponse struct {
		Authorized bool `json:"authorized"`
	}
)
