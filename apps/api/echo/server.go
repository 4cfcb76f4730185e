package echoapi

import (
	"context"
	stdlog "log"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/tshilobo/soko/core"
	"github.com/tshilobo/soko/core/coupon"
	"github.com/tshilobo/soko/core/course"
	"github.com/tshilobo/soko/core/ebook"
	"github.com/tshilobo/soko/core/exam"
	"github.com/tshilobo/soko/core/order"
	"github.com/tshilobo/soko/core/user"
	logsvc "github.com/tshilobo/soko/services/logger"
	oauthsvc "github.com/tshilobo/soko/services/oauth"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool
		Logger         core.Logger
		SignalShutdown func()

		UserSvc   user.Service
		CourseSvc course.Service
		EbookSvc  ebook.Service
		CouponSvc coupon.Service
		OrderSvc  order.Service
		ExamSvc   exam.Service
		OAuthSvc  oauthsvc.Service
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	if opts.Logger == nil {
		opts.Logger = logsvc.NewStdLogger(stdlog.New(os.Stdout, core.Conf.AppName+" : ", stdlog.LstdFlags|stdlog.Lshortfile))
	}
	if opts.SignalShutdown == nil {
		opts.SignalShutdown = func() {}
	}
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: core.Conf.Server.AllowedOrigins,
	}))
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.SignalShutdown)
	s.app.Debug = core.Conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerUserAPI(v1, jwt, s.opts.UserSvc, s.opts.OAuthSvc)
	registerCourseAPI(v1, jwt, s.opts.CourseSvc, s.opts.UserSvc)
	registerEbookAPI(v1, jwt, s.opts.EbookSvc)
	registerCouponAPI(v1, jwt, s.opts.CouponSvc)
	registerOrderAPI(v1, jwt, s.opts.OrderSvc, s.opts.UserSvc)
	registerExamAPI(v1, jwt, s.opts.ExamSvc)
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Soko API!")
}
