package inhale

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tanaste-io/tanaste/internal/db"
	"github.com/tanaste-io/tanaste/internal/repository"
	"github.com/tanaste-io/tanaste/internal/scoring"
	"github.com/tanaste-io/tanaste/internal/sidecar"
)

func newTestScanner(t *testing.T) *Scanner {
	t.Helper()
	conn, err := db.Connect(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("db.Connect() error: %v", err)
	}
	if err := db.Bootstrap(conn); err != nil {
		t.Fatalf("db.Bootstrap() error: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	scorer := scoring.New(scoring.Config{
		DefaultProviderWeight: map[string]float64{"sidecar": 1.0, "user": 1.0},
		ConflictEpsilon:       0.05,
	})

	return New(
		repository.NewHubRepository(conn),
		repository.NewWorkRepository(conn),
		repository.NewEditionRepository(conn),
		repository.NewMediaAssetRepository(conn),
		repository.NewClaimRepository(conn),
		repository.NewCanonicalRepository(conn),
		scorer,
	)
}

func writeHubEdition(t *testing.T, root string) (hubDir, editionDir string) {
	t.Helper()
	hubDir = filepath.Join(root, "Dune")
	editionDir = filepath.Join(hubDir, "Hardback 1st ed")
	if err := os.MkdirAll(editionDir, 0755); err != nil {
		t.Fatal(err)
	}

	if err := sidecar.WriteHub(hubDir, &sidecar.Hub{DisplayName: "Dune"}); err != nil {
		t.Fatalf("WriteHub() error: %v", err)
	}
	if err := sidecar.WriteEdition(editionDir, &sidecar.Edition{
		Title:       "Dune",
		Author:      "Frank Herbert",
		MediaType:   "epub",
		ContentHash: "deadbeef",
	}); err != nil {
		t.Fatalf("WriteEdition() error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(editionDir, "dune.epub"), []byte("fake epub body"), 0644); err != nil {
		t.Fatal(err)
	}
	return hubDir, editionDir
}

func TestScan_InsertsHubAndEditionFromSidecars(t *testing.T) {
	root := t.TempDir()
	writeHubEdition(t, root)

	scanner := newTestScanner(t)
	result, err := scanner.Scan(root)
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}

	if result.HubsSeen != 1 || result.EditionsSeen != 1 || result.AssetsSeen != 1 {
		t.Fatalf("Scan() result = %+v, want 1 hub, 1 edition, 1 asset", result)
	}
	if result.FilesMissing != 0 {
		t.Fatalf("FilesMissing = %d, want 0 (the epub file exists)", result.FilesMissing)
	}

	hub, err := scanner.Hubs.FindByDisplayName("dune")
	if err != nil || hub == nil {
		t.Fatalf("expected hub to exist after scan, err=%v hub=%+v", err, hub)
	}

	asset, err := scanner.Assets.FindByContentHash("deadbeef")
	if err != nil || asset == nil {
		t.Fatalf("expected asset to exist after scan, err=%v asset=%+v", err, asset)
	}
	if asset.IsDetached {
		t.Fatalf("expected asset not detached, file is present")
	}
}

func TestScan_FlagsMissingFileAsDetached(t *testing.T) {
	root := t.TempDir()
	_, editionDir := writeHubEdition(t, root)
	if err := os.Remove(filepath.Join(editionDir, "dune.epub")); err != nil {
		t.Fatal(err)
	}

	scanner := newTestScanner(t)
	result, err := scanner.Scan(root)
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if result.FilesMissing != 1 {
		t.Fatalf("FilesMissing = %d, want 1", result.FilesMissing)
	}

	asset, err := scanner.Assets.FindByContentHash("deadbeef")
	if err != nil || asset == nil {
		t.Fatal(err)
	}
	if !asset.IsDetached {
		t.Fatalf("expected asset to be flagged detached")
	}
}

func TestScan_XMLOverwritesExistingHubValues(t *testing.T) {
	root := t.TempDir()
	hubDir, _ := writeHubEdition(t, root)

	scanner := newTestScanner(t)
	if _, err := scanner.Scan(root); err != nil {
		t.Fatalf("first Scan() error: %v", err)
	}

	franchise := "Dune Saga"
	if err := sidecar.WriteHub(hubDir, &sidecar.Hub{DisplayName: "Dune", Franchise: franchise}); err != nil {
		t.Fatalf("WriteHub() error: %v", err)
	}

	result, err := scanner.Scan(root)
	if err != nil {
		t.Fatalf("second Scan() error: %v", err)
	}
	if result.HubsSeen != 1 {
		t.Fatalf("HubsSeen = %d, want 1", result.HubsSeen)
	}

	hub, err := scanner.Hubs.FindByDisplayName("Dune")
	if err != nil || hub == nil {
		t.Fatal(err)
	}
	if hub.Franchise == nil || *hub.Franchise != franchise {
		t.Fatalf("Franchise = %v, want %q (XML should overwrite the DB)", hub.Franchise, franchise)
	}
}

func TestScan_UserLocksApplyAndSurviveRescore(t *testing.T) {
	root := t.TempDir()
	hubDir := filepath.Join(root, "Dune")
	editionDir := filepath.Join(hubDir, "Hardback 1st ed")
	if err := os.MkdirAll(editionDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := sidecar.WriteHub(hubDir, &sidecar.Hub{DisplayName: "Dune"}); err != nil {
		t.Fatal(err)
	}
	if err := sidecar.WriteEdition(editionDir, &sidecar.Edition{
		Title:       "Dune",
		ContentHash: "cafef00d",
		UserLocks: []sidecar.UserLock{
			{Key: "title", Value: "Dune (Locked Title)", LockedAt: time.Now().UTC()},
		},
	}); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(editionDir, "dune.epub"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	scanner := newTestScanner(t)
	result, err := scanner.Scan(root)
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if result.UserLocksApplied != 1 {
		t.Fatalf("UserLocksApplied = %d, want 1", result.UserLocksApplied)
	}

	asset, err := scanner.Assets.FindByContentHash("cafef00d")
	if err != nil || asset == nil {
		t.Fatal(err)
	}
	canon, err := scanner.Canonical.ByEntity(asset.EditionID)
	if err != nil {
		t.Fatal(err)
	}
	var titleValue string
	for _, c := range canon {
		if c.FieldKey == "title" {
			titleValue = c.Value
		}
	}
	if titleValue != "Dune (Locked Title)" {
		t.Fatalf("canonical title = %q, want the user-locked value to win over the sidecar claim", titleValue)
	}
}
