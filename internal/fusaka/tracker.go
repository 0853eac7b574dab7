// Package fusaka tracks nodes that stopped attesting at the Fusaka fork.
// The tracker is a persistent side file: once a node is recorded dead it
// keeps its pinned fork descriptor across runs until a genuinely newer
// attestation shows up.
package fusaka

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"sort"
	"time"

	"github.com/SteelyNinja/rocketpool-performance/internal/beacon"
	"github.com/SteelyNinja/rocketpool-performance/internal/domain"
)

// Tracker holds the death list for one run. Load, Apply during the rollup,
// then Save.
type Tracker struct {
	path    string
	deaths  map[string]domain.FusakaDeath
	removed int
	now     func() time.Time
}

// Load reads the tracker file. A missing file is a fresh tracker, not an
// error; a malformed file is.
func Load(path string) (*Tracker, error) {
	t := &Tracker{
		path:   path,
		deaths: make(map[string]domain.FusakaDeath),
		now:    time.Now,
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read death tracker %s: %w", path, err)
	}

	var file domain.FusakaDeathFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode death tracker %s: %w", path, err)
	}
	for _, d := range file.Validators {
		t.deaths[d.NodeAddress] = d
	}
	return t, nil
}

// WithClock overrides the wall clock, for tests.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// Apply reconciles one node's computed descriptor with the death list. A
// tracked node recovers only on an attestation after the fork epoch; until
// then the pinned fork descriptor overrides whatever the window computed.
func (t *Tracker) Apply(nodeAddress string, computed domain.LastAttestation) domain.LastAttestation {
	if _, tracked := t.deaths[nodeAddress]; !tracked {
		return computed
	}

	if computed.Found() && computed.Epoch != nil && *computed.Epoch > beacon.FusakaEpoch {
		delete(t.deaths, nodeAddress)
		t.removed++
		log.Printf("fusaka: node %s recovered at epoch %d", nodeAddress, *computed.Epoch)
		return computed
	}

	return domain.FusakaAttestation(computed.AgeEpochs)
}

// Record adds a node to the death list if absent.
func (t *Tracker) Record(nodeAddress string) {
	if _, tracked := t.deaths[nodeAddress]; tracked {
		return
	}
	t.deaths[nodeAddress] = domain.FusakaDeath{
		NodeAddress: nodeAddress,
		Epoch:       beacon.FusakaEpoch,
		Timestamp:   beacon.EpochTimestamp(beacon.FusakaEpoch),
		DateTime:    beacon.FusakaDateTime,
	}
}

// Contains reports whether the node is currently tracked as dead.
func (t *Tracker) Contains(nodeAddress string) bool {
	_, tracked := t.deaths[nodeAddress]
	return tracked
}

// Count returns the number of tracked deaths.
func (t *Tracker) Count() int {
	return len(t.deaths)
}

// RemovedCount returns how many nodes recovered during this run.
func (t *Tracker) RemovedCount() int {
	return t.removed
}

// Save writes the tracker back atomically: temp file in the same directory,
// then rename.
func (t *Tracker) Save() error {
	file := domain.FusakaDeathFile{
		Validators:  make([]domain.FusakaDeath, 0, len(t.deaths)),
		TotalCount:  len(t.deaths),
		LastUpdated: t.now().UTC().Format("2006-01-02T15:04:05"),
	}
	for _, d := range t.deaths {
		file.Validators = append(file.Validators, d)
	}
	sort.Slice(file.Validators, func(i, j int) bool {
		return file.Validators[i].NodeAddress < file.Validators[j].NodeAddress
	})

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("encode death tracker: %w", err)
	}

	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write death tracker temp file: %w", err)
	}
	if err := os.Rename(tmp, t.path); err != nil {
		return fmt.Errorf("replace death tracker %s: %w", t.path, err)
	}
	return nil
}
