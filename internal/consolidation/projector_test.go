package consolidation_test

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/legisbr/consolida/internal/consolidation"
	"github.com/legisbr/consolida/internal/devices"
)

func version0(deviceID uuid.UUID, effective time.Time, text string) devices.Version {
	return devices.Version{
		ID:            uuid.New(),
		DeviceID:      deviceID,
		EffectiveFrom: effective,
		Text:          text,
		Status:        devices.StatusOriginal,
		CreatedAt:     effective,
	}
}

func amended(deviceID uuid.UUID, effective time.Time, text string) devices.Version {
	eventID := uuid.New()
	return devices.Version{
		ID:            uuid.New(),
		DeviceID:      deviceID,
		EffectiveFrom: effective,
		Text:          text,
		Status:        devices.StatusAmended,
		EventID:       &eventID,
		CreatedAt:     effective.Add(time.Hour),
	}
}

func revoked(deviceID uuid.UUID, effective time.Time) devices.Version {
	eventID := uuid.New()
	return devices.Version{
		ID:            uuid.New(),
		DeviceID:      deviceID,
		EffectiveFrom: effective,
		Status:        devices.StatusRevoked,
		EventID:       &eventID,
		CreatedAt:     effective.Add(time.Hour),
	}
}

func TestProjectPicksVersionEffectiveAtDate(t *testing.T) {
	published := day(2010, 1, 1)

	versions := map[uuid.UUID][]devices.Version{
		art1ID: {
			version0(art1ID, published, "Redação original"),
			amended(art1ID, day(2015, 6, 1), "Redação de 2015"),
		},
	}

	tests := []struct {
		name string
		asOf time.Time
		want string
	}{
		{"before the amendment", day(2012, 1, 1), "Redação original"},
		{"after the amendment", day(2016, 1, 1), "Redação de 2015"},
		{"on the amendment date", day(2015, 6, 1), "Redação de 2015"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := consolidation.Project(consolidation.ProjectionInput{
				NormID: normID,
				AsOf:   tt.asOf,
				Devices: []devices.Device{
					{ID: art1ID, NormID: normID, Kind: devices.KindArticle, Label: "Art. 1º", Ordinal: 0},
				},
				Versions: versions,
			})

			if len(tree.Roots) != 1 {
				t.Fatalf("root count = %d, want 1", len(tree.Roots))
			}
			if got := tree.Roots[0].Version.Text; got != tt.want {
				t.Errorf("text at %v = %q, want %q", tt.asOf, got, tt.want)
			}
		})
	}
}

func TestProjectRevokedBecomesTombstone(t *testing.T) {
	published := day(2010, 1, 1)

	tree := consolidation.Project(consolidation.ProjectionInput{
		NormID: normID,
		AsOf:   day(2021, 1, 1),
		Devices: []devices.Device{
			{ID: art1ID, NormID: normID, Kind: devices.KindArticle, Label: "Art. 1º", Ordinal: 0},
			{ID: par1ID, NormID: normID, ParentID: &art1ID, Kind: devices.KindParagraph, Label: "§ 1º", Ordinal: 0},
		},
		Versions: map[uuid.UUID][]devices.Version{
			art1ID: {
				version0(art1ID, published, "Caput"),
				revoked(art1ID, day(2020, 1, 1)),
			},
			par1ID: {
				version0(par1ID, published, "Parágrafo"),
			},
		},
	})

	if len(tree.Roots) != 1 {
		t.Fatalf("root count = %d, want 1", len(tree.Roots))
	}

	root := tree.Roots[0]
	if !root.Tombstone {
		t.Error("revoked device not rendered as tombstone")
	}
	if root.Version != nil {
		t.Error("tombstone carries version text")
	}
	if len(root.Children) != 0 {
		t.Error("descendants of a revoked device should vanish")
	}
}

func TestProjectRevokedBeforeRevocationStillRenders(t *testing.T) {
	published := day(2010, 1, 1)

	tree := consolidation.Project(consolidation.ProjectionInput{
		NormID: normID,
		AsOf:   day(2015, 1, 1),
		Devices: []devices.Device{
			{ID: art1ID, NormID: normID, Kind: devices.KindArticle, Label: "Art. 1º", Ordinal: 0},
		},
		Versions: map[uuid.UUID][]devices.Version{
			art1ID: {
				version0(art1ID, published, "Caput"),
				revoked(art1ID, day(2020, 1, 1)),
			},
		},
	})

	root := tree.Roots[0]
	if root.Tombstone {
		t.Error("device tombstoned before its revocation date")
	}
	if root.Version == nil || root.Version.Text != "Caput" {
		t.Error("pre-revocation projection should render the original text")
	}
}

func TestProjectDeviceNotYetInsertedOmitted(t *testing.T) {
	tree := consolidation.Project(consolidation.ProjectionInput{
		NormID: normID,
		AsOf:   day(2012, 1, 1),
		Devices: []devices.Device{
			{ID: art1ID, NormID: normID, Kind: devices.KindArticle, Label: "Art. 1º", Ordinal: 0},
			{ID: art2ID, NormID: normID, Kind: devices.KindArticle, Label: "Art. 1º-A", Ordinal: 1},
		},
		Versions: map[uuid.UUID][]devices.Version{
			art1ID: {version0(art1ID, day(2010, 1, 1), "Original")},
			// Art. 1º-A was inserted by a 2019 event; at 2012 it did
			// not exist.
			art2ID: {amended(art2ID, day(2019, 2, 1), "Inserido")},
		},
	})

	if len(tree.Roots) != 1 {
		t.Fatalf("root count = %d, want 1 (inserted device omitted)", len(tree.Roots))
	}
	if tree.Roots[0].Device.ID != art1ID {
		t.Error("wrong device rendered")
	}
}

func TestProjectLatencyGate(t *testing.T) {
	published := day(2024, 1, 1)

	tree := consolidation.Project(consolidation.ProjectionInput{
		NormID:        normID,
		AsOf:          day(2024, 3, 1),
		LatencyPeriod: true,
		Devices: []devices.Device{
			{ID: art1ID, NormID: normID, Kind: devices.KindArticle, Label: "Art. 1º", Ordinal: 0},
		},
		Versions: map[uuid.UUID][]devices.Version{
			art1ID: {
				version0(art1ID, published, "Texto como publicado"),
				// An amendment already effective by asOf: the latency
				// gate still suppresses it.
				amended(art1ID, day(2024, 2, 1), "Alteração prematura"),
			},
		},
	})

	root := tree.Roots[0]
	if !tree.LatencyPeriod {
		t.Error("latency flag not carried onto the tree")
	}
	if root.Version.Text != "Texto como publicado" {
		t.Errorf("text = %q, want the as-published wording", root.Version.Text)
	}
}

func TestProjectSameDayTieBrokenByCreation(t *testing.T) {
	shared := day(2010, 1, 1)

	orig := version0(art1ID, shared, "Original")
	amd := amended(art1ID, shared, "Alterada no mesmo dia")

	tree := consolidation.Project(consolidation.ProjectionInput{
		NormID: normID,
		AsOf:   day(2010, 6, 1),
		Devices: []devices.Device{
			{ID: art1ID, NormID: normID, Kind: devices.KindArticle, Label: "Art. 1º", Ordinal: 0},
		},
		Versions: map[uuid.UUID][]devices.Version{
			art1ID: {orig, amd},
		},
	})

	if got := tree.Roots[0].Version.Text; got != "Alterada no mesmo dia" {
		t.Errorf("text = %q, want the later-created version", got)
	}
}

func TestProjectSiblingOrder(t *testing.T) {
	published := day(2010, 1, 1)

	tree := consolidation.Project(consolidation.ProjectionInput{
		NormID: normID,
		AsOf:   day(2020, 1, 1),
		Devices: []devices.Device{
			// Deliberately out of order; ordinals decide rendering.
			{ID: art2ID, NormID: normID, Kind: devices.KindArticle, Label: "Art. 2º", Ordinal: 1},
			{ID: art1ID, NormID: normID, Kind: devices.KindArticle, Label: "Art. 1º", Ordinal: 0},
		},
		Versions: map[uuid.UUID][]devices.Version{
			art1ID: {version0(art1ID, published, "Primeiro")},
			art2ID: {version0(art2ID, published, "Segundo")},
		},
	})

	if len(tree.Roots) != 2 {
		t.Fatalf("root count = %d, want 2", len(tree.Roots))
	}
	if tree.Roots[0].Device.Label != "Art. 1º" || tree.Roots[1].Device.Label != "Art. 2º" {
		t.Errorf("roots out of order: %s, %s", tree.Roots[0].Device.Label, tree.Roots[1].Device.Label)
	}
}

func TestProjectSourcePointer(t *testing.T) {
	published := day(2010, 1, 1)

	v := version0(art1ID, published, "Texto")
	v.Unverified = true

	tree := consolidation.Project(consolidation.ProjectionInput{
		NormID: normID,
		AsOf:   day(2020, 1, 1),
		Devices: []devices.Device{
			{
				ID:      art1ID,
				NormID:  normID,
				Kind:    devices.KindArticle,
				Label:   "Art. 1º",
				Ordinal: 0,
				Span:    devices.SourceSpan{Start: 10, End: 42},
			},
		},
		Versions: map[uuid.UUID][]devices.Version{art1ID: {v}},
	})

	src := tree.Roots[0].Source
	if src.NormID != normID {
		t.Errorf("source norm = %s, want owning norm", src.NormID)
	}
	if src.Span.Start != 10 || src.Span.End != 42 {
		t.Errorf("source span = %+v, want [10,42)", src.Span)
	}
	if !src.Unverified {
		t.Error("unverified flag not propagated to source pointer")
	}
}
