package stream

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// syncRecorder is a recorder safe for use from session goroutines.
type syncRecorder struct {
	mu     sync.Mutex
	events []string
}

func (r *syncRecorder) OnDelta(text string)        { r.add("delta:" + text) }
func (r *syncRecorder) OnComplete(fullText string) { r.add("complete:" + fullText) }
func (r *syncRecorder) OnError(err error)          { r.add("error:" + err.Error()) }

func (r *syncRecorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *syncRecorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// pipeOpener hands out the read side of a pipe the test writes frames into.
func pipeOpener() (OpenFunc, *io.PipeWriter) {
	pr, pw := io.Pipe()
	return func(ctx context.Context) (io.ReadCloser, error) { return pr, nil }, pw
}

var _ = Describe("Manager", func() {
	var (
		manager *Manager
		ctx     context.Context
	)

	BeforeEach(func() {
		manager = NewManager()
		ctx = context.Background()
	})

	It("should run a session to completion and release it", func() {
		rec := &syncRecorder{}
		open := func(ctx context.Context) (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(frame("A") + frame("B"))), nil
		}

		session := manager.Start(ctx, open, rec)
		Expect(session.ID).NotTo(BeEmpty())

		stats, err := session.Wait()
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Deltas).To(Equal(2))
		Expect(rec.Events()).To(Equal([]string{"delta:A", "delta:AB", "complete:AB"}))
		Expect(manager.Active()).To(BeNil())
	})

	It("should cancel the previous session before starting a new one", func() {
		first := &syncRecorder{}
		openFirst, pw := pipeOpener()
		old := manager.Start(ctx, openFirst, first)

		_, err := pw.Write([]byte(frame("old")))
		Expect(err).NotTo(HaveOccurred())
		Eventually(first.Events).Should(Equal([]string{"delta:old"}))

		second := &syncRecorder{}
		openSecond := func(ctx context.Context) (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(frame("new"))), nil
		}
		current := manager.Start(ctx, openSecond, second)

		Expect(old.Cancelled()).To(BeTrue())
		Eventually(old.Done()).Should(BeClosed())

		_, err = pw.Write([]byte(frame("late")))
		Expect(err).To(HaveOccurred())
		pw.Close()

		_, err = current.Wait()
		Expect(err).NotTo(HaveOccurred())
		Expect(second.Events()).To(Equal([]string{"delta:new", "complete:new"}))
		Consistently(first.Events, 50*time.Millisecond).Should(Equal([]string{"delta:old"}))

		_, err = old.Wait()
		Expect(err).To(MatchError(ErrCancelled))
	})

	It("should not report an error for a voluntary cancel", func() {
		rec := &syncRecorder{}
		open, pw := pipeOpener()
		defer pw.Close()

		session := manager.Start(ctx, open, rec)
		Expect(manager.Cancel()).To(BeTrue())

		_, err := session.Wait()
		Expect(err).To(MatchError(ErrCancelled))
		Expect(rec.Events()).To(BeEmpty())
		Expect(manager.Active()).To(BeNil())
		Expect(manager.Cancel()).To(BeFalse())
	})

	It("should report a failure to open the stream", func() {
		rec := &syncRecorder{}
		open := func(ctx context.Context) (io.ReadCloser, error) {
			return nil, errors.New("connection refused")
		}

		_, err := manager.Start(ctx, open, rec).Wait()
		Expect(err).To(MatchError("connection refused"))
		Expect(rec.Events()).To(Equal([]string{"error:connection refused"}))
	})

	It("should stay silent when the open call is cancelled", func() {
		rec := &syncRecorder{}
		started := make(chan struct{})
		open := func(ctx context.Context) (io.ReadCloser, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}

		session := manager.Start(ctx, open, rec)
		Eventually(started).Should(BeClosed())
		session.Cancel()
		session.Cancel()

		_, err := session.Wait()
		Expect(err).To(MatchError(ErrCancelled))
		Expect(rec.Events()).To(BeEmpty())
	})

	It("should report transport failures once", func() {
		rec := &syncRecorder{}
		open, pw := pipeOpener()

		session := manager.Start(ctx, open, rec)
		_, err := pw.Write([]byte(frame("x")))
		Expect(err).NotTo(HaveOccurred())
		pw.CloseWithError(errors.New("reset by peer"))

		_, err = session.Wait()
		Expect(err).To(MatchError("reset by peer"))
		Expect(rec.Events()).To(Equal([]string{"delta:x", "error:reset by peer"}))
	})
})
