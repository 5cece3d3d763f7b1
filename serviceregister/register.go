package serviceregister

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/gocrud/tenantengine/logging"
	"github.com/gocrud/tenantengine/snowflake"
)

const (
	maxNodeID    = int16(1023)
	registerTries = 50
	retryDelay    = 10 * time.Millisecond
)

// Options configures node-ID registration for this process.
type Options struct {
	// DB is the gorm connection backing the lease table. A nil DB skips
	// the cluster-coordination algorithm entirely and always takes the
	// deterministic-fallback path.
	DB *gorm.DB

	ServiceName string
	// WorkerName overrides the default (two trailing path components of
	// the working directory).
	WorkerName string

	RentInterval  time.Duration // default 1 minute
	RentThreshold time.Duration // default 10 minutes
	Epoch         time.Time

	Logger logging.Logger
}

func (o *Options) setDefaults() {
	if o.RentInterval <= 0 {
		o.RentInterval = time.Minute
	}
	if o.RentThreshold <= 0 {
		o.RentThreshold = 10 * time.Minute
	}
	if o.WorkerName == "" {
		o.WorkerName = defaultWorkerName()
	}
}

// Register owns the leased node ID and the Snowflake generator seeded with
// it. It implements hosting.HostedService: Start runs the acquisition
// algorithm and begins lease renewal; Stop halts renewal without
// releasing the row, so a clean restart can reclaim the same ID via the
// IP+worker match in step 3.
type Register struct {
	opts Options

	mu          sync.Mutex
	nodeID      int16
	startupTime time.Time
	ip          string
	generator   *snowflake.Generator

	cron *cron.Cron
}

// NewRegister constructs a Register. Call Start to run the acquisition
// algorithm.
func NewRegister(opts Options) *Register {
	opts.setDefaults()
	return &Register{opts: opts}
}

// Generator returns the Snowflake generator, valid only after Start
// succeeds.
func (r *Register) Generator() *snowflake.Generator {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generator
}

// NodeID returns the acquired node ID, valid only after Start succeeds.
func (r *Register) NodeID() int16 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nodeID
}

// Start runs the node-ID acquisition algorithm (spec §4.4 "Algorithm on
// startup"), seeds the Snowflake generator, and starts the lease-renewal
// cron job.
func (r *Register) Start(ctx context.Context) error {
	ip, err := discoverLANIP()
	if err != nil {
		r.logf("could not discover LAN IP, falling back to loopback: %v", err)
		ip = "127.0.0.1"
	}
	r.ip = ip

	nodeID, startupTime, err := r.acquire(ctx)
	if err != nil {
		return fmt.Errorf("serviceregister: node id acquisition failed: %w", err)
	}

	gen, err := snowflake.New(nodeID, r.opts.Epoch)
	if err != nil {
		return fmt.Errorf("serviceregister: %w", err)
	}

	r.mu.Lock()
	r.nodeID = nodeID
	r.startupTime = startupTime
	r.generator = gen
	r.mu.Unlock()

	r.logf("acquired node id %d for worker %q at %s", nodeID, r.opts.WorkerName, ip)

	if r.opts.DB != nil {
		r.startRenewal()
	}
	return nil
}

// Stop halts lease renewal. The row is left in place so a restart within
// RentThreshold can reclaim the same node ID via the IP+worker match.
func (r *Register) Stop(ctx context.Context) error {
	r.mu.Lock()
	c := r.cron
	r.mu.Unlock()
	if c == nil {
		return nil
	}
	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Register) startRenewal() {
	c := cron.New()
	spec := fmt.Sprintf("@every %s", r.opts.RentInterval)
	_, _ = c.AddFunc(spec, func() {
		if err := r.renew(); err != nil {
			r.logf("lease renewal failed, re-registering: %v", err)
			if _, _, err := r.acquire(context.Background()); err != nil {
				r.logf("re-registration after failed renewal failed: %v", err)
			}
		}
	})
	c.Start()

	r.mu.Lock()
	r.cron = c
	r.mu.Unlock()
}

func (r *Register) renew() error {
	r.mu.Lock()
	nodeID := r.nodeID
	startupTime := r.startupTime
	r.mu.Unlock()

	res := r.opts.DB.Model(&Model{}).
		Where("node_id = ? AND startup_time = ?", nodeID, startupTime).
		Update("last_rent_time", time.Now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("lease row missing or superseded")
	}
	return nil
}

// acquire implements steps 1-8 of the acquisition algorithm.
func (r *Register) acquire(ctx context.Context) (int16, time.Time, error) {
	if r.opts.DB == nil {
		return r.deterministicFallback(), time.Now(), nil
	}

	var lastErr error
	for attempt := 0; attempt < registerTries; attempt++ {
		nodeID, startupTime, ok, err := r.tryAcquire()
		if err != nil {
			lastErr = err
		} else if ok {
			return nodeID, startupTime, nil
		}

		select {
		case <-ctx.Done():
			return 0, time.Time{}, ctx.Err()
		case <-time.After(retryDelay):
		}
	}

	r.logf("node id acquisition exhausted %d attempts (%v), falling back to deterministic id", registerTries, lastErr)
	return r.deterministicFallback(), time.Now(), nil
}

// tryAcquire runs one pass of steps 2-7; ok=false means the caller should
// retry (an insert/update affected zero rows due to a concurrent race).
func (r *Register) tryAcquire() (nodeID int16, startupTime time.Time, ok bool, err error) {
	var rows []Model
	if err = r.opts.DB.Find(&rows).Error; err != nil {
		return 0, time.Time{}, false, err
	}

	for _, row := range rows {
		if row.IP == r.ip && row.Worker == r.opts.WorkerName {
			startupTime = time.Now()
			res := r.opts.DB.Model(&Model{}).
				Where("node_id = ? AND startup_time = ?", row.NodeID, row.StartupTime).
				Updates(map[string]any{
					"startup_time":   startupTime,
					"last_rent_time": startupTime,
					"extra":          r.extra(),
				})
			if res.Error != nil {
				return 0, time.Time{}, false, res.Error
			}
			return row.NodeID, startupTime, res.RowsAffected > 0, nil
		}
	}

	occupied := make(map[int16]bool, len(rows))
	for _, row := range rows {
		occupied[row.NodeID] = true
	}

	for id := int16(0); id <= maxNodeID; id++ {
		if occupied[id] {
			continue
		}
		startupTime = time.Now()
		model := Model{
			NodeID:       id,
			Name:         r.opts.ServiceName,
			IP:           r.ip,
			Worker:       r.opts.WorkerName,
			StartupTime:  startupTime,
			LastRentTime: startupTime,
			Extra:        r.extra(),
		}
		res := r.opts.DB.Create(&model)
		if res.Error != nil {
			// Another process may have taken this ID between our scan and
			// insert; treat any create error as "retry from the top".
			return 0, time.Time{}, false, nil
		}
		return id, startupTime, res.RowsAffected > 0, nil
	}

	now := time.Now()
	for _, row := range rows {
		if now.Sub(row.LastRentTime) >= r.opts.RentThreshold {
			startupTime = now
			res := r.opts.DB.Model(&Model{}).
				Where("node_id = ? AND startup_time = ?", row.NodeID, row.StartupTime).
				Updates(map[string]any{
					"name":           r.opts.ServiceName,
					"ip":             r.ip,
					"worker":         r.opts.WorkerName,
					"startup_time":   startupTime,
					"last_rent_time": startupTime,
					"extra":          r.extra(),
				})
			if res.Error != nil {
				return 0, time.Time{}, false, res.Error
			}
			return row.NodeID, startupTime, res.RowsAffected > 0, nil
		}
	}

	return 0, time.Time{}, false, errors.New("no free or expired node id available")
}

func (r *Register) extra() ExtraMap {
	hostname, _ := os.Hostname()
	return ExtraMap{
		"pid":      strconv.Itoa(os.Getpid()),
		"hostname": hostname,
		"args":     strings.Join(os.Args, " "),
		"machine":  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// deterministicFallback computes a collision-possible node ID from the LAN
// IP and PID when no data source is configured or the coordinated
// algorithm is exhausted.
func (r *Register) deterministicFallback() int16 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(r.ip))
	_, _ = h.Write([]byte(strconv.Itoa(os.Getpid())))
	return int16(h.Sum32() % uint32(maxNodeID+1))
}

func (r *Register) logf(format string, args ...any) {
	if r.opts.Logger == nil {
		return
	}
	r.opts.Logger.Warn(fmt.Sprintf(format, args...))
}

func discoverLANIP() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() || ipNet.IP.To4() == nil {
			continue
		}
		return ipNet.IP.String(), nil
	}
	return "", errors.New("no non-loopback IPv4 address found")
}

// defaultWorkerName derives a worker identifier from the two trailing
// path components of the working directory (spec §3 "Service Register
// Model").
func defaultWorkerName() string {
	wd, err := os.Getwd()
	if err != nil {
		return "unknown"
	}
	wd = filepath.ToSlash(filepath.Clean(wd))
	parts := strings.Split(strings.Trim(wd, "/"), "/")
	if len(parts) == 0 {
		return "unknown"
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return strings.Join(parts[len(parts)-2:], "/")
}
