package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rs/zerolog"

	"github.com/vinizap/foldnote/auth"
	"github.com/vinizap/foldnote/domain"
	"github.com/vinizap/foldnote/filter"
	"github.com/vinizap/foldnote/store"
	"github.com/vinizap/foldnote/workspace"
)

// WarningHeader is set when a change was applied but could not be saved.
const WarningHeader = "X-Foldnote-Warning"

type Server struct {
	ws        *workspace.Workspace
	log       zerolog.Logger
	token     string
	tokenHash string
	loc       *time.Location
}

func NewServer(ws *workspace.Workspace, token, tokenHash string, log zerolog.Logger) *Server {
	return &Server{ws: ws, log: log, token: token, tokenHash: tokenHash, loc: time.Local}
}

// App builds the fiber application with every route mounted.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "foldnote",
		DisableStartupMessage: true,
		// Request values end up in the stores and must not alias fasthttp buffers.
		Immutable: true,
		ErrorHandler:          s.handleError,
	})

	app.Use(s.requestLogger)
	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:  "Content-Type, " + auth.Header,
		ExposeHeaders: WarningHeader,
	}))
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api", auth.Middleware(s.token, s.tokenHash))

	api.Get("/folders", s.HandleFolders)
	api.Post("/folders", s.HandleCreateFolder)
	api.Put("/folders/:id", s.HandleRenameFolder)
	api.Delete("/folders/:id", s.HandleDeleteFolder)

	api.Get("/notes", s.HandleNotes)
	api.Post("/notes", s.HandleCreateNote)
	api.Put("/notes/:id", s.HandleUpdateNote)
	api.Delete("/notes/:id", s.HandleDeleteNote)

	api.Get("/items", s.HandleItems)

	return app
}

func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	if err != nil {
		// Let the error handler write the response before logging its status.
		if herr := c.App().ErrorHandler(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}

	s.log.Info().
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", c.Response().StatusCode()).
		Dur("latency", time.Since(start)).
		Msg("request")
	return nil
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var (
		verr *domain.ValidationError
		ferr *fiber.Error
	)
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Require to fill in the field",
			"field": verr.Field,
		})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":    err.Error(),
			"redirect": "/404",
		})
	case errors.Is(err, filter.ErrInvalid):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &ferr):
		return c.Status(ferr.Code).JSON(fiber.Map{"error": ferr.Message})
	default:
		s.log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}

// saved turns a failed write-through into a response header. Any other
// error is returned unchanged.
func saved(c *fiber.Ctx, err error) error {
	if errors.Is(err, store.ErrPersist) {
		c.Set(WarningHeader, "changes are kept in memory but could not be saved")
		return nil
	}
	return err
}

func pathParam(c *fiber.Ctx) string {
	if p := c.Query("path"); p != "" {
		return p
	}
	return domain.RootPath
}

func bind(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

func (s *Server) HandleFolders(c *fiber.Ctx) error {
	return c.JSON(s.ws.Folders.All())
}

func (s *Server) HandleCreateFolder(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name" form:"name"`
		Path string `json:"path" form:"path"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Path == "" {
		req.Path = domain.RootPath
	}

	folder, err := s.ws.CreateFolder(c.UserContext(), req.Name, req.Path)
	if err := saved(c, err); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(folder)
}

func (s *Server) HandleRenameFolder(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name" form:"name"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}

	folder, err := s.ws.RenameFolder(c.UserContext(), c.Params("id"), req.Name)
	if err := saved(c, err); err != nil {
		return err
	}
	return c.JSON(folder)
}

func (s *Server) HandleDeleteFolder(c *fiber.Ctx) error {
	if err := saved(c, s.ws.DeleteFolder(c.UserContext(), c.Params("id"))); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) HandleNotes(c *fiber.Ctx) error {
	if c.Query("path") == "" {
		return c.JSON(s.ws.Notes.All())
	}
	notes := s.ws.NotesIn(c.Query("path"))
	if notes == nil {
		notes = []domain.Note{}
	}
	return c.JSON(notes)
}

func (s *Server) HandleCreateNote(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name" form:"name"`
		Text string `json:"text" form:"text"`
		Path string `json:"path" form:"path"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Path == "" {
		req.Path = domain.RootPath
	}

	note, err := s.ws.CreateNote(c.UserContext(), req.Name, req.Text, req.Path)
	if err := saved(c, err); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(note)
}

func (s *Server) HandleUpdateNote(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name" form:"name"`
		Text string `json:"text" form:"text"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}

	note, err := s.ws.EditNote(c.UserContext(), c.Params("id"), req.Name, req.Text)
	if err := saved(c, err); err != nil {
		return err
	}
	return c.JSON(note)
}

func (s *Server) HandleDeleteNote(c *fiber.Ctx) error {
	if err := saved(c, s.ws.DeleteNote(c.UserContext(), c.Params("id"))); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type itemView struct {
	domain.Item
	FormattedDate string `json:"formatted_date"`
}

func (s *Server) HandleItems(c *fiber.Ctx) error {
	var f *filter.Filter
	if where := c.Query("where"); where != "" {
		var err error
		if f, err = filter.Compile(where); err != nil {
			return err
		}
	}

	path := pathParam(c)
	items, err := s.ws.List(path, c.Query("q"), f)
	if err != nil {
		return err
	}

	views := make([]itemView, len(items))
	for i, it := range items {
		views[i] = itemView{Item: it, FormattedDate: domain.FormatTimestamp(it.Date, domain.DefaultDateFormat, s.loc)}
	}

	breadcrumb := s.ws.Breadcrumb(path)
	if breadcrumb == nil {
		breadcrumb = []domain.Folder{}
	}

	return c.JSON(fiber.Map{
		"path":       path,
		"items":      views,
		"breadcrumb": breadcrumb,
	})
}
