// Package consolidation implements the consolidation engine and the
// point-in-time projector. The engine replays amendment events against
// a norm's device tree, producing new device versions; the projector
// renders the tree as of any date from the stored version history.
// Replay is pure and deterministic: identical inputs produce
// bit-identical output, which makes re-consolidation idempotent.
package consolidation

import (
	"time"

	"github.com/google/uuid"

	"github.com/legisbr/consolida/internal/devices"
	"github.com/legisbr/consolida/internal/events"
)

// Policy selects the winner when two events target the same device
// with the same effective date.
type Policy string

const (
	// PolicyLastWins prefers the later event in replay order.
	PolicyLastWins Policy = "last_wins"
	// PolicyFirstWins prefers the earlier event in replay order.
	PolicyFirstWins Policy = "first_wins"
)

// Conflict records two events colliding on one device and date.
// Conflicts never fail a replay; they are surfaced for review.
type Conflict struct {
	DeviceID      uuid.UUID   `json:"device_id"`
	EffectiveDate time.Time   `json:"effective_date"`
	WinnerEventID uuid.UUID   `json:"winner_event_id"`
	LoserEventIDs []uuid.UUID `json:"loser_event_ids"`
}

// Relabel is a renumber outcome: a device's display label changes
// without touching text or hierarchy. Only the targeted device is
// relabeled; descendants whose labels should follow get their own
// renumber events, so every label change stays traceable to one
// event in the log.
type Relabel struct {
	DeviceID uuid.UUID `json:"device_id"`
	Label    string    `json:"label"`
}

// Input is everything replay needs. Devices holds the norm's current
// tree in document order. Events must already be in replay order.
type Input struct {
	NormID  uuid.UUID
	Devices []devices.Device
	Events  []events.Event
	Policy  Policy
}

// Result is the set of changes replay derives from the event log.
// Nothing is applied here; the store reconciles the result against
// persisted state.
type Result struct {
	NewDevices  []devices.Device
	NewVersions []devices.Version
	Ordinals    map[uuid.UUID]int
	Relabels    []Relabel
	Conflicts   []Conflict
}

// pending tracks the surviving event per (device, day) while replay
// walks the log.
type pending struct {
	event  events.Event
	losers []uuid.UUID
}

// Replay computes the versions the event log implies for the tree.
// Same-day collisions on one device collapse to a single version per
// the policy, with the losing events recorded as a conflict. The
// function never fails: malformed situations degrade to conflicts or
// skipped events, keeping consolidation total.
func Replay(in Input) *Result {
	result := &Result{
		Ordinals: make(map[uuid.UUID]int),
	}

	tree := newTreeState(in.Devices)

	// Surviving event per device and day, insertion-ordered for
	// deterministic output.
	surviving := make(map[uuid.UUID]map[time.Time]*pending)
	var order []versionKey

	record := func(deviceID uuid.UUID, ev events.Event) {
		// Events can outlive their target across a re-segmentation;
		// an unknown device is skipped, not fatal.
		if _, known := tree.ordinals[deviceID]; !known {
			return
		}

		day := dayOf(ev.EffectiveDate)

		byDay, ok := surviving[deviceID]
		if !ok {
			byDay = make(map[time.Time]*pending)
			surviving[deviceID] = byDay
		}

		current, ok := byDay[day]
		if !ok {
			byDay[day] = &pending{event: ev}
			order = append(order, versionKey{deviceID, day})
			return
		}

		if in.Policy == PolicyFirstWins {
			current.losers = append(current.losers, ev.ID)
			return
		}

		current.losers = append(current.losers, current.event.ID)
		current.event = ev
	}

	for _, ev := range in.Events {
		switch ev.Action {
		case events.ActionRevoke:
			if ev.TargetDeviceID != nil {
				record(*ev.TargetDeviceID, ev)
				continue
			}
			// Norm-wide revocation hits every root; descendants
			// inherit at projection time.
			for _, rootID := range tree.roots() {
				record(rootID, ev)
			}

		case events.ActionReplaceText:
			if ev.TargetDeviceID != nil {
				record(*ev.TargetDeviceID, ev)
			}

		case events.ActionInsertDevice:
			spec := ev.Payload.Insert
			if spec == nil {
				continue
			}

			// A parent the tree does not know (vanished across a
			// re-segmentation, or never this norm's) would dangle;
			// skip the insert like any other unknown target.
			if spec.ParentDeviceID != nil {
				if _, known := tree.ordinals[*spec.ParentDeviceID]; !known {
					continue
				}
			}

			d := devices.Device{
				ID:       insertedDeviceID(ev.ID),
				NormID:   in.NormID,
				ParentID: spec.ParentDeviceID,
				Kind:     spec.Kind,
				Label:    spec.Label,
			}

			d.Ordinal = tree.insert(d, spec.Position, result.Ordinals)
			result.NewDevices = append(result.NewDevices, d)
			record(d.ID, ev)

		case events.ActionRenumber:
			if ev.TargetDeviceID != nil && ev.Payload.NewLabel != "" {
				result.Relabels = append(result.Relabels, Relabel{
					DeviceID: *ev.TargetDeviceID,
					Label:    ev.Payload.NewLabel,
				})
			}
		}
	}

	for _, key := range order {
		p := surviving[key.deviceID][key.day]
		v := versionFromEvent(key.deviceID, p)

		if len(p.losers) > 0 {
			result.Conflicts = append(result.Conflicts, Conflict{
				DeviceID:      key.deviceID,
				EffectiveDate: key.day,
				WinnerEventID: p.event.ID,
				LoserEventIDs: p.losers,
			})
		}

		result.NewVersions = append(result.NewVersions, v)
	}

	return result
}

type versionKey struct {
	deviceID uuid.UUID
	day      time.Time
}

func versionFromEvent(deviceID uuid.UUID, p *pending) devices.Version {
	ev := p.event
	eventID := ev.ID

	v := devices.Version{
		ID:            versionID(deviceID, ev.ID),
		DeviceID:      deviceID,
		EffectiveFrom: dayOf(ev.EffectiveDate),
		EventID:       &eventID,
	}

	switch ev.Action {
	case events.ActionRevoke:
		v.Status = devices.StatusRevoked
		v.Text = ""
	default:
		v.Status = devices.StatusAmended
		v.Text = ev.Payload.Text
	}

	if len(p.losers) > 0 {
		note := conflictNote(p.losers)
		v.ConflictNote = &note
	}

	return v
}

func conflictNote(losers []uuid.UUID) string {
	note := "conflicts with event"
	if len(losers) > 1 {
		note += "s"
	}
	for i, id := range losers {
		if i > 0 {
			note += ","
		}
		note += " " + id.String()
	}
	return note
}

// insertedDeviceID derives a stable identifier for a device created by
// an insert event, so re-running consolidation reproduces the same
// device rather than a duplicate.
func insertedDeviceID(eventID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("device:"+eventID.String()))
}

// versionID derives a stable identifier for the version one event
// produces on one device.
func versionID(deviceID, eventID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("version:"+deviceID.String()+":"+eventID.String()))
}

// dayOf truncates to the calendar day in UTC. Effective dates are
// day-granular; sub-day components never order events.
func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// treeState tracks sibling ordering during replay so inserted devices
// shift later siblings without disturbing earlier ones.
type treeState struct {
	children map[uuid.UUID][]uuid.UUID // parent -> ordered child ids
	rootIDs  []uuid.UUID
	ordinals map[uuid.UUID]int
}

func newTreeState(ds []devices.Device) *treeState {
	s := &treeState{
		children: make(map[uuid.UUID][]uuid.UUID),
		ordinals: make(map[uuid.UUID]int),
	}

	for _, d := range ds {
		s.ordinals[d.ID] = d.Ordinal
		if d.ParentID == nil {
			s.rootIDs = append(s.rootIDs, d.ID)
		} else {
			s.children[*d.ParentID] = append(s.children[*d.ParentID], d.ID)
		}
	}

	return s
}

func (s *treeState) roots() []uuid.UUID {
	return s.rootIDs
}

// insert places a new device at the requested position among its
// siblings, shifting later siblings right. Returns the ordinal
// assigned to the new device and records shifted ordinals in shifted.
func (s *treeState) insert(d devices.Device, position int, shifted map[uuid.UUID]int) int {
	var siblings []uuid.UUID
	if d.ParentID == nil {
		siblings = s.rootIDs
	} else {
		siblings = s.children[*d.ParentID]
	}

	if position > len(siblings) {
		position = len(siblings)
	}

	for _, sib := range siblings {
		if s.ordinals[sib] >= position {
			s.ordinals[sib]++
			shifted[sib] = s.ordinals[sib]
		}
	}

	s.ordinals[d.ID] = position
	siblings = append(siblings, d.ID)

	if d.ParentID == nil {
		s.rootIDs = siblings
	} else {
		s.children[*d.ParentID] = siblings
	}

	return position
}
