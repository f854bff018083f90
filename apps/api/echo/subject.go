package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-curriculum/core/reorder"
	"github.com/trezcool/masomo-curriculum/core/subject"
)

type subjectApi struct {
	svc      *subject.Service
	validate *validator.Validate
}

func registerSubjectAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *subject.Service, validate *validator.Validate) {
	api := subjectApi{
		svc:      svc,
		validate: validate,
	}

	sg := g.Group("/subjects", jwt)
	sg.GET("", api.query)
	sg.POST("", api.create, adminMiddleware())
	sg.GET("/:id", api.retrieve)

	tg := sg.Group("/:id/topics")
	tg.GET("", api.queryTopics)
	tg.POST("", api.addTopic, curriculumEditorMiddleware())
	tg.PUT("/:topicId/position", api.moveTopic, curriculumEditorMiddleware())
}

// Handlers

func (api *subjectApi) query(ctx echo.Context) error {
	filter := new(subject.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []subject.Subject{})
	}
	filter.Clean()
	ordering := newOrdering(subject.OrderingFields...)
	if err := ordering.Bind(ctx); err != nil {
		return err
	}

	subjects, err := api.svc.QuerySubjects(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	if subjects == nil {
		subjects = []subject.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *subjectApi) create(ctx echo.Context) error {
	var data subject.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	subj, err := api.svc.CreateSubject(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, subj)
}

func (api *subjectApi) retrieve(ctx echo.Context) error {
	subj, err := api.svc.GetSubject(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting subject")
	}
	return ctx.JSON(http.StatusOK, subj)
}

func (api *subjectApi) queryTopics(ctx echo.Context) error {
	topics, err := api.svc.QueryTopics(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying topics")
	}
	if topics == nil {
		topics = []subject.Topic{}
	}
	return ctx.JSON(http.StatusOK, topics)
}

func (api *subjectApi) addTopic(ctx echo.Context) error {
	var data subject.NewTopic
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTopic")
	}

	reqCtx := ctx.Request().Context()
	existing, err := api.svc.QueryTopics(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying topics")
	}
	if err := data.Validate(api.validate, existing); err != nil {
		return err
	}

	topic, err := api.svc.AddTopic(reqCtx, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding topic")
	}
	return ctx.JSON(http.StatusCreated, topic)
}

func (api *subjectApi) moveTopic(ctx echo.Context) error {
	var data subject.MoveTopic
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MoveTopic")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	topicID := ctx.Param("topicId")
	topics, err := api.svc.MoveTopic(ctx.Request().Context(), ctx.Param("id"), topicID, data.Position)
	if err != nil {
		return errors.Wrap(err, "moving topic")
	}

	var title string
	for _, t := range topics {
		if t.ID == topicID {
			title = t.Title
			break
		}
	}
	return ctx.JSON(http.StatusOK, reorder.Response{
		Success: true,
		Message: fmt.Sprintf("%s moved to position %d", title, data.Position),
	})
}
