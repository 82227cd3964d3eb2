package deps

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/linkdeck/internal/httpserver/mw"
	"github.com/MrSnakeDoc/linkdeck/internal/importer"
	"github.com/MrSnakeDoc/linkdeck/internal/index"
	"github.com/MrSnakeDoc/linkdeck/internal/logger"
	"github.com/MrSnakeDoc/linkdeck/internal/validation"
)

// CatalogStore is the read-only view of the catalog store the ops
// endpoints need.
type CatalogStore interface {
	Ping(ctx context.Context) error
	Counts(ctx context.Context) (sections, links int64, err error)
}

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	Commit    string
	BuildDate string
	GoVersion string

	AllowedHosts   []string      // Host headers allowed on admin routes
	AllowedCIDRS   []string      // IPs/CIDRs allowed on admin and ops routes
	TrustProxy     bool          // true if running behind a trusted reverse proxy (e.g., cloudflared)
	CORSOrigins    []string      // origins allowed to read the public catalog API
	RequestTimeout time.Duration // timeout for every route except import

	Store       CatalogStore
	MemoryIndex *index.MemoryIndex

	Importer         *importer.Controller
	Validator        *validation.Validator
	MaxUploadBytes   int64
	ExtractRateLimit mw.RateLimitConfig
	Model            string // extraction model, reported by /infra

	// RefreshCatalog queues a catalog refresh. false means one is already queued.
	RefreshCatalog func() bool
}
