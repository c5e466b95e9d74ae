package consolidation

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/legisbr/consolida/internal/devices"
)

// SourcePointer links rendered text back to its extracted origin:
// the owning norm, the byte span in that norm's archived source, and
// the OCR acceptance flag. Rendering never presents text without it.
type SourcePointer struct {
	NormID     uuid.UUID          `json:"norm_id"`
	Span       devices.SourceSpan `json:"span"`
	Unverified bool               `json:"unverified"`
}

// Node is one rendered device. A tombstone node marks a revoked
// device at its former position; tombstones carry no version text and
// no children.
type Node struct {
	Device    devices.Device   `json:"device"`
	Version   *devices.Version `json:"version,omitempty"`
	Tombstone bool             `json:"tombstone,omitempty"`
	Source    SourcePointer    `json:"source"`
	Children  []*Node          `json:"children,omitempty"`
}

// Tree is the consolidated view of one norm at one date.
type Tree struct {
	NormID        uuid.UUID `json:"norm_id"`
	AsOf          time.Time `json:"as_of"`
	LatencyPeriod bool      `json:"latency_period"`
	Roots         []*Node   `json:"roots"`
}

// ProjectionInput carries the stored state the projector reads.
// Versions maps each device to its full history; order within a
// history does not matter, the projector sorts.
type ProjectionInput struct {
	NormID        uuid.UUID
	AsOf          time.Time
	LatencyPeriod bool
	Devices       []devices.Device
	Versions      map[uuid.UUID][]devices.Version
}

// Project renders the tree as of the given date. For each device the
// latest version with effective_from <= asOf applies. Revoked devices
// become tombstones and their descendants vanish from the rendering;
// devices with no version yet at asOf never existed at that date and
// are omitted entirely. During a norm's latency period only version 0
// is rendered, regardless of recorded events.
func Project(in ProjectionInput) *Tree {
	tree := &Tree{
		NormID:        in.NormID,
		AsOf:          in.AsOf,
		LatencyPeriod: in.LatencyPeriod,
	}

	byParent := make(map[uuid.UUID][]devices.Device)
	var roots []devices.Device

	for _, d := range in.Devices {
		if d.ParentID == nil {
			roots = append(roots, d)
		} else {
			byParent[*d.ParentID] = append(byParent[*d.ParentID], d)
		}
	}

	sortSiblings(roots)
	for _, siblings := range byParent {
		sortSiblings(siblings)
	}

	for _, root := range roots {
		if node := projectNode(in, byParent, root); node != nil {
			tree.Roots = append(tree.Roots, node)
		}
	}

	return tree
}

func projectNode(
	in ProjectionInput,
	byParent map[uuid.UUID][]devices.Device,
	d devices.Device,
) *Node {
	v := effectiveVersion(in, d.ID)
	if v == nil {
		return nil
	}

	node := &Node{
		Device: d,
		Source: SourcePointer{
			NormID:     in.NormID,
			Span:       d.Span,
			Unverified: v.Unverified,
		},
	}

	if v.Revoked() {
		node.Tombstone = true
		return node
	}

	node.Version = v

	for _, child := range byParent[d.ID] {
		if childNode := projectNode(in, byParent, child); childNode != nil {
			node.Children = append(node.Children, childNode)
		}
	}

	return node
}

// effectiveVersion selects the latest version effective at asOf.
// The latency gate restricts the history to version 0: the norm is
// published but not yet binding, so no amendment applies.
func effectiveVersion(in ProjectionInput, deviceID uuid.UUID) *devices.Version {
	history := in.Versions[deviceID]

	var candidates []devices.Version
	for _, v := range history {
		if in.LatencyPeriod && v.EventID != nil {
			continue
		}
		if in.LatencyPeriod || !v.EffectiveFrom.After(in.AsOf) {
			candidates = append(candidates, v)
		}
	}

	if len(candidates) == 0 {
		return nil
	}

	// Creation order breaks effective-date ties: a version derived
	// from an event supersedes the original it shares a date with.
	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].EffectiveFrom.Equal(candidates[j].EffectiveFrom) {
			return candidates[i].EffectiveFrom.Before(candidates[j].EffectiveFrom)
		}
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})

	v := candidates[len(candidates)-1]
	return &v
}

func sortSiblings(ds []devices.Device) {
	sort.SliceStable(ds, func(i, j int) bool {
		return ds[i].Ordinal < ds[j].Ordinal
	})
}
