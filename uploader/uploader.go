package uploader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/histogo/blobstore"
	"github.com/hupe1980/histogo/compress"
	"github.com/hupe1980/histogo/core"
	"github.com/hupe1980/histogo/resource"
)

const (
	// CurrentName is the pointer object updated after every successful
	// cycle. It holds the name of the newest payload object. Commit-backed
	// stores such as s3.DDBCommitStore version this name atomically.
	CurrentName = "CURRENT"

	// payloadPrefix is the namespace for payload objects. Object names
	// embed zero-padded unix nanos, so a sorted List is chronological.
	payloadPrefix = "payloads/"
)

// Source renders payloads for shipping. *histogo.Service implements it.
type Source interface {
	Payload(ctx context.Context, subset core.Subset, format core.Format) ([]byte, error)
	PayloadDelta(ctx context.Context, subset core.Subset, format core.Format) ([]byte, error)
	SessionID() string
}

// Uploader ships rendered payloads to a blob store on a fixed cadence.
type Uploader struct {
	source Source
	store  blobstore.Store
	ctrl   *resource.Controller
	opts   options
}

// New creates an Uploader shipping from source into store.
func New(source Source, store blobstore.Store, optFns ...Option) *Uploader {
	opts := newOptions(optFns)
	return &Uploader{
		source: source,
		store:  store,
		ctrl:   resource.NewController(opts.resources),
		opts:   opts,
	}
}

// Run ships a cycle every interval until ctx is canceled, then waits for
// in-flight cycles and returns ctx.Err. When all upload slots are busy a
// tick is skipped, not queued; cycle errors are logged and the loop keeps
// going.
func (u *Uploader) Run(ctx context.Context) error {
	ticker := time.NewTicker(u.opts.interval)
	defer ticker.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !u.ctrl.TryAcquireSlot() {
				u.opts.logger.DebugContext(ctx, "upload cycle skipped, previous still running")
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer u.ctrl.ReleaseSlot()
				u.cycle(ctx)
			}()
		}
	}
}

// UploadOnce runs a single cycle synchronously, blocking for a free upload
// slot first. It returns the stored object names in upload order.
func (u *Uploader) UploadOnce(ctx context.Context) ([]string, error) {
	if err := u.ctrl.AcquireSlot(ctx); err != nil {
		return nil, err
	}
	defer u.ctrl.ReleaseSlot()
	return u.cycle(ctx)
}

// cycle uploads one object per configured subset, then moves the CURRENT
// pointer and applies retention. A subset failure aborts the cycle; objects
// already uploaded stay put and CURRENT keeps its previous target.
func (u *Uploader) cycle(ctx context.Context) ([]string, error) {
	var names []string
	for _, subset := range u.opts.subsets {
		name, err := u.uploadSubset(ctx, subset)
		if err != nil {
			return names, err
		}
		names = append(names, name)
	}

	if len(names) > 0 {
		if err := u.store.Put(ctx, CurrentName, []byte(names[len(names)-1])); err != nil {
			err = fmt.Errorf("uploader: update %s: %w", CurrentName, err)
			u.opts.logger.LogUpload(ctx, CurrentName, 0, err)
			return names, err
		}
	}

	if err := u.prune(ctx); err != nil {
		// Retention is advisory; the next cycle retries it.
		u.opts.logger.WarnContext(ctx, "retention prune failed", "error", err)
	}

	return names, nil
}

func (u *Uploader) uploadSubset(ctx context.Context, subset core.Subset) (string, error) {
	log := u.opts.logger.WithSubset(subset)

	render := u.source.Payload
	if u.opts.delta {
		render = u.source.PayloadDelta
	}

	payload, err := render(ctx, subset, u.opts.format)
	if err != nil {
		return "", fmt.Errorf("uploader: render %s: %w", subset, err)
	}

	compressed, err := compress.Compress(payload, u.opts.compression)
	if err != nil {
		return "", fmt.Errorf("uploader: compress %s payload: %w", subset, err)
	}

	env := &Envelope{
		ID:          uuid.NewString(),
		SessionID:   u.source.SessionID(),
		CreatedAt:   time.Now().Unix(),
		Subset:      subset.String(),
		Format:      u.opts.format.String(),
		Compression: u.opts.compression.String(),
		Delta:       u.opts.delta,
		Payload:     compressed,
	}
	data, err := u.opts.codec.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("uploader: marshal envelope: %w", err)
	}

	if err := u.ctrl.AcquireBuffer(ctx, int64(len(data))); err != nil {
		return "", err
	}
	defer u.ctrl.ReleaseBuffer(int64(len(data)))

	name := fmt.Sprintf("%s%020d-%s", payloadPrefix, time.Now().UnixNano(), env.ID)

	if err := u.write(ctx, name, data); err != nil {
		log.LogUpload(ctx, name, len(data), err)
		return "", err
	}

	log.LogUpload(ctx, name, len(data), nil)
	return name, nil
}

// write streams data into a new object, spreading the bytes over the IO
// budget. A failed write deletes the partial object best effort.
func (u *Uploader) write(ctx context.Context, name string, data []byte) error {
	w, err := u.store.Create(ctx, name)
	if err != nil {
		return err
	}

	lw := resource.NewRateLimitedWriter(ctx, u.ctrl, w)
	if _, err := lw.Write(data); err != nil {
		_ = w.Close()
		_ = u.store.Delete(ctx, name)
		return err
	}
	if err := w.Close(); err != nil {
		_ = u.store.Delete(ctx, name)
		return err
	}
	return nil
}

// prune deletes the oldest payload objects beyond the retention limit.
func (u *Uploader) prune(ctx context.Context) error {
	if u.opts.retention <= 0 {
		return nil
	}

	names, err := u.store.List(ctx, payloadPrefix)
	if err != nil {
		return err
	}
	if len(names) <= u.opts.retention {
		return nil
	}

	stale := names[:len(names)-u.opts.retention]
	for _, name := range stale {
		if err := u.store.Delete(ctx, name); err != nil {
			return err
		}
	}

	u.opts.logger.DebugContext(ctx, "pruned payload objects",
		"deleted", len(stale),
		"kept", u.opts.retention,
	)
	return nil
}
