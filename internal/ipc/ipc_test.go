package ipc_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cinetag/internal/daemon"
	"cinetag/internal/engine"
	"cinetag/internal/ipc"
	"cinetag/internal/logging"
	"cinetag/internal/testsupport"
)

func TestIPCServerClient(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	eng := engine.NewWithGateway(cfg, store, logger, nil)
	d, err := daemon.New(cfg, store, eng, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	socket := filepath.Join(cfg.Paths.LogDir, "cinetagd.sock")
	srv, err := ipc.NewServer(ctx, socket, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() {
		srv.Close()
	})

	time.Sleep(50 * time.Millisecond)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})

	startResp, err := client.Start()
	if err != nil {
		t.Fatalf("Start RPC failed: %v", err)
	}
	if !startResp.Started {
		t.Fatalf("expected Started=true, message=%s", startResp.Message)
	}

	// Let the startup convergence pass finish so later cycles are not
	// coalesced into it.
	time.Sleep(100 * time.Millisecond)

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running {
		t.Fatal("expected daemon to be running")
	}
	if !strings.HasSuffix(status.StorePath, "tags.db") {
		t.Fatalf("unexpected store path: %s", status.StorePath)
	}

	movieA := testsupport.AddMovie(t, cfg, "Heat (1995).mkv")
	testsupport.AddMovie(t, cfg, "Alien (1979).mkv")

	createResp, err := client.TagCreate("  Film Noir ")
	if err != nil {
		t.Fatalf("TagCreate failed: %v", err)
	}
	if createResp.Name != "Film Noir" {
		t.Fatalf("expected canonical tag name, got %q", createResp.Name)
	}
	if _, err := client.TagCreate("Sci-Fi"); err != nil {
		t.Fatalf("TagCreate second failed: %v", err)
	}

	assignResp, err := client.Assign("Film Noir", movieA.Name)
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if assignResp.Outcome == nil || assignResp.Outcome.Reconcile == nil {
		t.Fatalf("expected assign outcome with reconcile report, got %#v", assignResp.Outcome)
	}
	if len(assignResp.Outcome.Reconcile.Created) != 1 {
		t.Fatalf("expected 1 created link, got %#v", assignResp.Outcome.Reconcile.Created)
	}
	linkPath := filepath.Join(cfg.Paths.TagDir, "Film Noir", movieA.Name)
	if _, err := os.Lstat(linkPath); err != nil {
		t.Fatalf("expected link at %s: %v", linkPath, err)
	}

	listResp, err := client.TagList()
	if err != nil {
		t.Fatalf("TagList failed: %v", err)
	}
	if len(listResp.Tags) != 2 {
		t.Fatalf("expected 2 tags, got %d", len(listResp.Tags))
	}
	if listResp.Tags[0].Name != "Film Noir" || listResp.Tags[0].MovieCount != 1 {
		t.Fatalf("unexpected first tag: %#v", listResp.Tags[0])
	}
	if listResp.Tags[1].Name != "Sci-Fi" || listResp.Tags[1].MovieCount != 0 {
		t.Fatalf("unexpected second tag: %#v", listResp.Tags[1])
	}

	moviesResp, err := client.MovieList()
	if err != nil {
		t.Fatalf("MovieList failed: %v", err)
	}
	if len(moviesResp.Movies) != 2 {
		t.Fatalf("expected 2 movies, got %d", len(moviesResp.Movies))
	}
	var tagged *ipc.Movie
	for i := range moviesResp.Movies {
		if moviesResp.Movies[i].Name == movieA.Name {
			tagged = &moviesResp.Movies[i]
		}
	}
	if tagged == nil {
		t.Fatalf("movie %s missing from listing", movieA.Name)
	}
	if len(tagged.Tags) != 1 || tagged.Tags[0] != "Film Noir" {
		t.Fatalf("unexpected tags on %s: %#v", tagged.Name, tagged.Tags)
	}
	if tagged.ID == "" {
		t.Fatal("expected movie id to be populated")
	}

	toggleResp, err := client.Toggle("Film Noir", tagged.ID)
	if err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if toggleResp.Assigned {
		t.Fatal("expected toggle to unassign")
	}
	if _, err := os.Lstat(linkPath); !os.IsNotExist(err) {
		t.Fatalf("expected link removed, lstat err=%v", err)
	}

	if _, err := client.Assign("Film Noir", "No Such Movie.mkv"); err == nil {
		t.Fatal("expected assign of unknown movie to fail")
	}

	unassignTarget, err := client.Toggle("Sci-Fi", "Alien (1979).mkv")
	if err != nil {
		t.Fatalf("Toggle assign failed: %v", err)
	}
	if !unassignTarget.Assigned {
		t.Fatal("expected toggle to assign")
	}
	if _, err := client.Unassign("Sci-Fi", "Alien (1979).mkv"); err != nil {
		t.Fatalf("Unassign failed: %v", err)
	}

	deleteResp, err := client.TagDelete("Sci-Fi")
	if err != nil {
		t.Fatalf("TagDelete failed: %v", err)
	}
	if deleteResp.Outcome == nil {
		t.Fatal("expected delete outcome")
	}

	reconResp, err := client.Reconcile()
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if reconResp.Outcome == nil || reconResp.Outcome.Mutations != 0 {
		t.Fatalf("expected converged cycle, got %#v", reconResp.Outcome)
	}

	notifyResp, err := client.TestNotification()
	if err != nil {
		t.Fatalf("TestNotification failed: %v", err)
	}
	if notifyResp.Sent {
		t.Fatalf("expected notification skip without topic, got %#v", notifyResp)
	}
	if notifyResp.Message == "" {
		t.Fatal("expected notification message")
	}

	stopResp, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop RPC failed: %v", err)
	}
	if !stopResp.Stopped {
		t.Fatal("expected stop response to be true")
	}

	status2, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if status2.Running {
		t.Fatal("expected daemon to be stopped")
	}
}
