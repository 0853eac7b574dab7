// Package scan loads the node operator scan file: the on-chain roster of
// nodes, their minipools and delegate flags, produced by the chain scanner.
package scan

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/SteelyNinja/rocketpool-performance/internal/domain"
)

// Load reads and decodes a scan file. A missing or malformed file is fatal
// for every run, so the error carries the path.
func Load(path string) ([]domain.ScanNode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scan file %s: %w", path, err)
	}

	var nodes []domain.ScanNode
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("decode scan file %s: %w", path, err)
	}
	return nodes, nil
}

// Validators flattens the roster into one entry per minipool with a known
// public key. Nodes without minipools and minipools whose pubkey is null
// (not yet staked) are skipped. Pubkeys are normalized to bare hex.
func Validators(nodes []domain.ScanNode) []domain.Validator {
	var validators []domain.Validator
	for _, node := range nodes {
		if node.MinipoolCount == 0 {
			continue
		}
		for i, pubkey := range node.MinipoolPubkeys {
			if pubkey == nil || *pubkey == "" {
				continue
			}
			v := domain.Validator{
				NodeIndex:   node.NodeIndex,
				NodeAddress: node.NodeAddress,
				PubKey:      strings.TrimPrefix(*pubkey, "0x"),
			}
			if i < len(node.MinipoolAddresses) {
				v.MinipoolAddress = node.MinipoolAddresses[i]
			}
			validators = append(validators, v)
		}
	}
	return validators
}
