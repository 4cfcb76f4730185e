package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	echoapi "github.com/tshilobo/soko/apps/api/echo"
	"github.com/tshilobo/soko/core"
	"github.com/tshilobo/soko/core/coupon"
	"github.com/tshilobo/soko/core/course"
	"github.com/tshilobo/soko/core/ebook"
	"github.com/tshilobo/soko/core/exam"
	"github.com/tshilobo/soko/core/order"
	"github.com/tshilobo/soko/core/user"
	cachesvc "github.com/tshilobo/soko/services/cache"
	emailsvc "github.com/tshilobo/soko/services/email"
	logsvc "github.com/tshilobo/soko/services/logger"
	oauthsvc "github.com/tshilobo/soko/services/oauth"
	"github.com/tshilobo/soko/storage/database"
	sqlxrepos "github.com/tshilobo/soko/storage/database/sqlx"
)

func main() {
	std := log.New(os.Stdout, fmt.Sprintf("%s : ", core.Conf.AppName), log.LstdFlags|log.Lshortfile)

	var logger core.Logger
	if core.Conf.Debug {
		logger = logsvc.NewStdLogger(std)
	} else {
		logger = logsvc.NewRollbarLogger(std, core.Conf)
	}
	logger.Enable(!(core.Conf.Debug || core.Conf.TestMode))

	if err := run(logger); err != nil {
		logger.Fatal("server error", err)
	}
}

func run(logger core.Logger) error {
	if err := core.Conf.Validate(); err != nil {
		return err
	}

	// set up DB
	db, err := database.Open(core.Conf)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	// set up cache; fall back to in-memory when redis is unreachable
	var cache core.Cache
	if redisCache, err := cachesvc.NewRedisCache(core.Conf); err == nil {
		defer func() { _ = redisCache.Close() }()
		cache = redisCache
	} else {
		logger.Warn("redis unavailable, falling back to in-memory cache", err)
		cache = cachesvc.NewInMemCache()
	}

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc)
	courseSvc := course.NewService(sqlxrepos.NewCourseRepository(db))
	ebookSvc := ebook.NewService(sqlxrepos.NewEbookRepository(db))
	couponSvc := coupon.NewService(sqlxrepos.NewCouponRepository(db), cache)
	orderSvc := order.NewService(sqlxrepos.NewOrderRepository(db), courseSvc, ebookSvc, couponSvc, mailSvc)
	examSvc := exam.NewService(sqlxrepos.NewExamRepository(db), courseSvc)
	oauthSvc := oauthsvc.NewLineService(core.Conf)

	// start API server
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	app := echoapi.NewServer(&echoapi.Options{
		Address:        core.Conf.Server.Address(),
		Logger:         logger,
		SignalShutdown: func() { shutdown <- syscall.SIGTERM },
		UserSvc:        usrSvc,
		CourseSvc:      courseSvc,
		EbookSvc:       ebookSvc,
		CouponSvc:      couponSvc,
		OrderSvc:       orderSvc,
		ExamSvc:        examSvc,
		OAuthSvc:       oauthSvc,
	})

	serverErrors := make(chan error, 1)
	go func() { serverErrors <- app.Start() }()

	select {
	case err := <-serverErrors:
		return err
	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v : starting graceful shutdown", sig))

		ctx, cancel := context.WithTimeout(context.Background(), core.Conf.Server.ShutdownTimeout)
		defer cancel()

		if err := app.Stop(ctx); err != nil {
			return err
		}
	}
	return nil
}
