package puller

import (
	"context"
	"sync"
	"time"

	"github.com/sguter90/airmaestro/pkg/logger"
	"github.com/sguter90/airmaestro/pkg/models"
)

// DeviceLister provides the registered devices
type DeviceLister interface {
	ListDevices(ctx context.Context) ([]models.Device, error)
}

// ReadingSink accepts freshly pulled readings
type ReadingSink interface {
	Refresh(ctx context.Context, incoming []models.Reading) ([]models.Reading, error)
}

// PullerService manages periodic data pulling into the ingestion store
type PullerService struct {
	fetcher  *FetchService
	devices  DeviceLister
	sink     ReadingSink
	log      *logger.Logger
	interval time.Duration
	stopChan chan struct{}
	done     chan struct{}
	once     sync.Once
}

// NewPullerService creates a new PullerService
func NewPullerService(fetcher *FetchService, devices DeviceLister, sink ReadingSink, log *logger.Logger, interval time.Duration) *PullerService {
	if log == nil {
		log = logger.Nop()
	}
	return &PullerService{
		fetcher:  fetcher,
		devices:  devices,
		sink:     sink,
		log:      log.WithComponent("puller"),
		interval: interval,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the periodic pulling service
func (ps *PullerService) Start() {
	go ps.run()
	ps.log.Logger.Info().Dur("interval", ps.interval).Msg("puller service started")
}

// Stop halts the pulling service and waits for a running pull to finish.
// It must only be called after Start.
func (ps *PullerService) Stop() {
	ps.once.Do(func() {
		close(ps.stopChan)
	})
	<-ps.done
	ps.log.Info("puller service stopped")
}

// run executes the pulling loop
func (ps *PullerService) run() {
	defer close(ps.done)

	ticker := time.NewTicker(ps.interval)
	defer ticker.Stop()

	// Pull immediately on start
	ps.pullAndLog()

	for {
		select {
		case <-ps.stopChan:
			return
		case <-ticker.C:
			ps.pullAndLog()
		}
	}
}

func (ps *PullerService) pullAndLog() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case <-ps.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	total, err := ps.PullOnce(ctx)
	if err != nil {
		ps.log.ErrorWithError(err, "pull cycle finished with errors")
		return
	}
	ps.log.Logger.Info().Int("total", total).Msg("pull cycle complete")
}

// PullOnce fetches all enabled devices and merges the result into the store.
// It returns the size of the store after the merge.
func (ps *PullerService) PullOnce(ctx context.Context) (int, error) {
	devices, err := ps.devices.ListDevices(ctx)
	if err != nil {
		return 0, err
	}

	incoming, fetchErr := ps.fetcher.FetchAll(ctx, devices)
	if len(incoming) == 0 {
		return 0, fetchErr
	}

	merged, err := ps.sink.Refresh(ctx, incoming)
	if err != nil {
		return 0, err
	}

	return len(merged), fetchErr
}
