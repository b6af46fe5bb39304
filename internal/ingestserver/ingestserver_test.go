package ingestserver

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/RichterDelaCruz/mediaconsumer/internal/hashlock"
	"github.com/RichterDelaCruz/mediaconsumer/internal/queue"
	"github.com/RichterDelaCruz/mediaconsumer/internal/videostore"
	"github.com/RichterDelaCruz/mediaconsumer/internal/wire"
)

type testServer struct {
	acceptor *Acceptor
	queue    *queue.Queue[videostore.VideoHandle]
	dir      string
	cancel   context.CancelFunc
}

func startTestServer(t *testing.T, workers, capacity int) *testServer {
	t.Helper()
	dir := t.TempDir()

	q := queue.New[videostore.VideoHandle](capacity)
	acceptor := NewAcceptor(AcceptorConfig{
		Addr:       "127.0.0.1:0",
		Workers:    workers,
		UploadsDir: dir,
		Queue:      q,
		Locks:      hashlock.New(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	go func() {
		go func() {
			for {
				if acceptor.Addr() != nil {
					close(ready)
					return
				}
				time.Sleep(time.Millisecond)
			}
		}()
		_ = acceptor.Serve(ctx)
	}()

	select {
	case <-ready:
	case <-time.After(time.Second):
		t.Fatal("server did not start listening")
	}

	ts := &testServer{acceptor: acceptor, queue: q, dir: dir, cancel: cancel}
	t.Cleanup(func() {
		cancel()
		acceptor.Stop()
	})
	return ts
}

func (ts *testServer) upload(t *testing.T, filename string, payload []byte) string {
	t.Helper()

	conn, err := net.Dial("tcp", ts.acceptor.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := wire.WriteUTF(conn, filename); err != nil {
		t.Fatalf("write filename: %v", err)
	}
	if err := wire.WriteInt64(conn, int64(len(payload))); err != nil {
		t.Fatalf("write size: %v", err)
	}
	if _, err := conn.Write(payload); err != nil {
		t.Fatalf("write payload: %v", err)
	}

	status, err := wire.ReadUTF(conn)
	if err != nil {
		t.Fatalf("read status: %v", err)
	}
	return status
}

func TestHappyPath(t *testing.T) {
	ts := startTestServer(t, 4, 2)

	status := ts.upload(t, "hello.mp4", []byte("hello"))
	if status != "SUCCESS" {
		t.Fatalf("expected SUCCESS, got %s", status)
	}

	entries, err := os.ReadDir(ts.dir)
	if err != nil {
		t.Fatalf("read uploads dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one finalized file, got %d", len(entries))
	}

	matched, _ := regexp.MatchString(`^\d{8}_\d{9}_[A-Za-z0-9]+_hello\.mp4$`, entries[0].Name())
	if !matched {
		t.Fatalf("finalized file name %q does not match expected pattern", entries[0].Name())
	}

	contents, err := os.ReadFile(filepath.Join(ts.dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("read finalized file: %v", err)
	}
	if string(contents) != "hello" {
		t.Fatalf("got contents %q want %q", contents, "hello")
	}

	if got := ts.queue.Size(); got != 1 {
		t.Fatalf("expected queue size 1, got %d", got)
	}
}

func TestDuplicateRace(t *testing.T) {
	ts := startTestServer(t, 4, 2)

	payload := bytes.Repeat([]byte{0}, 1024*1024)

	var wg sync.WaitGroup
	statuses := make([]string, 2)
	names := []string{"a.bin", "b.bin"}
	wg.Add(2)
	for i := 0; i < 2; i++ {
		i := i
		go func() {
			defer wg.Done()
			statuses[i] = ts.upload(t, names[i], payload)
		}()
	}
	wg.Wait()

	successCount, dupCount := 0, 0
	for _, s := range statuses {
		switch s {
		case "SUCCESS":
			successCount++
		case "DUPLICATE_FILE":
			dupCount++
		}
	}
	if successCount != 1 || dupCount != 1 {
		t.Fatalf("expected one SUCCESS and one DUPLICATE_FILE, got %v", statuses)
	}

	entries, err := os.ReadDir(ts.dir)
	if err != nil {
		t.Fatalf("read uploads dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one finalized file, got %d", len(entries))
	}

	if got := ts.queue.Size(); got != 1 {
		t.Fatalf("expected queue size 1, got %d", got)
	}
}

func TestQueueFullRejection(t *testing.T) {
	ts := startTestServer(t, 4, 2)

	statuses := []string{
		ts.upload(t, "one.bin", []byte("a")),
		ts.upload(t, "two.bin", []byte("b")),
		ts.upload(t, "three.bin", []byte("c")),
	}

	if statuses[0] != "SUCCESS" || statuses[1] != "SUCCESS" {
		t.Fatalf("expected first two uploads to succeed, got %v", statuses)
	}
	if statuses[2] != "QUEUE_FULL" {
		t.Fatalf("expected third upload to be rejected as QUEUE_FULL, got %s", statuses[2])
	}

	entries, err := os.ReadDir(ts.dir)
	if err != nil {
		t.Fatalf("read uploads dir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected exactly two finalized files, got %d", len(entries))
	}
}

func TestShortTransfer(t *testing.T) {
	ts := startTestServer(t, 4, 2)

	conn, err := net.Dial("tcp", ts.acceptor.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	if err := wire.WriteUTF(conn, "short.bin"); err != nil {
		t.Fatalf("write filename: %v", err)
	}
	if err := wire.WriteInt64(conn, 1024); err != nil {
		t.Fatalf("write size: %v", err)
	}
	if _, err := conn.Write(make([]byte, 512)); err != nil {
		t.Fatalf("write partial payload: %v", err)
	}
	conn.Close()

	time.Sleep(100 * time.Millisecond)

	entries, err := os.ReadDir(ts.dir)
	if err != nil {
		t.Fatalf("read uploads dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no files left after a short transfer, got %v", entries)
	}
}

func TestFilenameSanitization(t *testing.T) {
	ts := startTestServer(t, 4, 2)

	status := ts.upload(t, "../../etc/passwd", []byte("abc"))
	if status != "SUCCESS" {
		t.Fatalf("expected SUCCESS, got %s", status)
	}

	entries, err := os.ReadDir(ts.dir)
	if err != nil {
		t.Fatalf("read uploads dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one finalized file, got %d", len(entries))
	}
	if got := entries[0].Name(); len(got) < len("_etc_passwd") || got[len(got)-len("_etc_passwd"):] != "_etc_passwd" {
		t.Fatalf("expected finalized name to end with _etc_passwd, got %q", got)
	}
}

func TestStopUnblocksAccept(t *testing.T) {
	ts := startTestServer(t, 4, 2)

	if err := ts.acceptor.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	ts.acceptor.Wait()
}
