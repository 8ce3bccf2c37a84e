package drop

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	log "github.com/sirupsen/logrus"

	"github.com/drophost/drop/api/adminapi"
	"github.com/drophost/drop/internal/cache"
	"github.com/drophost/drop/internal/ident"
	"github.com/drophost/drop/storage"
	"github.com/drophost/drop/storage/model"
)

// Drop is the content-hosting service: it serves the public upload and
// retrieval routes plus the admin API on a single fiber app.
type Drop struct {
	server     *fiber.App
	serverConf ServerConf
	storage    model.Backends
	cache      cache.Cache
	cacheTTL   time.Duration
	idLength   int
	countViews bool
}

// Options collects the optional knobs for a Drop service. The zero value is
// usable: no cache, view counting on, default identifier length.
type Options struct {
	// Cache, when non-nil, is consulted for retrievals. It is only used
	// when view counting is disabled, since a cached hit would otherwise
	// skip the counter.
	Cache    cache.Cache
	CacheTTL time.Duration
	// IDLength is the length of generated identifiers. A value stored
	// through the admin settings API takes precedence.
	IDLength int
	// DisableViews turns off the per-entry view counter.
	DisableViews bool
}

// FiberServerConfig is the fiber.Config that is used to init the http fiber.App
var FiberServerConfig = fiber.Config{
	ReadTimeout:    3 * time.Second,
	WriteTimeout:   20 * time.Second,
	IdleTimeout:    150 * time.Second,
	ReadBufferSize: 8192,
	BodyLimit:      64 * 1024 * 1024,
	ErrorHandler:   handleError,
	Network:        "tcp",
}

// NewDrop creates a new Drop service on top of the passed storage backends
// and registers all routes.
func NewDrop(serverConf ServerConf, storages model.Backends, opts Options) (*Drop, error) {
	if tps := serverConf.TrustedProxies; len(tps) > 0 {
		FiberServerConfig.TrustedProxies = serverConf.TrustedProxies
		FiberServerConfig.EnableTrustedProxyCheck = true
	}
	FiberServerConfig.ProxyHeader = serverConf.ForwardedIPHeader
	server := fiber.New(FiberServerConfig)
	server.Use(recover.New())
	server.Use(compress.New())
	server.Use(logger.New())
	server.Use(requestid.New())

	idLength := opts.IDLength
	if idLength <= 0 {
		idLength = ident.DefaultLength
	}
	d := &Drop{
		server:     server,
		serverConf: serverConf,
		storage:    storages,
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
		idLength:   idLength,
		countViews: !opts.DisableViews,
	}

	auth := d.requireAuth

	server.Post("/f", auth, d.uploadFile)
	server.Post("/l", auth, d.uploadLink)
	server.Post("/t", auth, d.uploadText)
	server.Put("/f/:id", auth, d.replaceFile)
	server.Put("/l/:id", auth, d.replaceLink)
	server.Put("/t/:id", auth, d.replaceText)
	server.Delete("/:id", auth, d.remove)

	if err := adminapi.Register(server.Group("/api/v1/admin"), storages); err != nil {
		return nil, err
	}

	server.Get("/:id", d.retrieve)

	return d, nil
}

// HttpHandlerFunc returns an http.HandlerFunc for serving all the necessary endpoints
func (d Drop) HttpHandlerFunc() http.HandlerFunc {
	return adaptor.FiberApp(d.server)
}

// Listen starts an http server at the specific address for serving all the
// necessary endpoints
func (d Drop) Listen(addr string) error {
	return d.server.Listen(addr)
}

func (d Drop) Start() {
	conf := d.serverConf
	if !conf.TLS.Enabled {
		log.WithField("port", conf.Port).Info("TLS is disabled starting http server")
		log.WithError(d.server.Listen(fmt.Sprintf("%s:%d", conf.IPListen, conf.Port))).Fatal()
	}
	// TLS enabled
	if conf.TLS.RedirectHTTP {
		httpServer := fiber.New(FiberServerConfig)
		httpServer.All(
			"*", func(ctx *fiber.Ctx) error {
				return ctx.Redirect(
					strings.Replace(ctx.Request().URI().String(), "http://", "https://", 1),
					fiber.StatusPermanentRedirect,
				)
			},
		)
		log.Info("TLS and http redirect enabled, starting redirect server on port 80")
		go func() {
			log.WithError(httpServer.Listen(":80")).Fatal()
		}()
	}
	time.Sleep(time.Millisecond) // This is just for a more pretty output with the tls header printed after the http one
	log.Info("TLS enabled, starting https server on port 443")
	log.WithError(d.server.ListenTLS(":443", conf.TLS.Cert, conf.TLS.Key)).Fatal()
}

// length returns the identifier length for new entries, preferring the value
// set through the admin settings API over the configured default.
func (d *Drop) length() int {
	l, err := storage.GetIDLength(d.storage.KV, d.idLength)
	if err != nil {
		log.WithError(err).Error("failed to read id length setting")
		return d.idLength
	}
	return l
}
