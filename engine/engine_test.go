package engine

import (
	"context"
	"testing"
	"time"

	"github.com/rushteam/dealkit/core"
	"github.com/rushteam/dealkit/graph"
	"github.com/rushteam/dealkit/store"
)

var now = time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

func testDeals() []core.Deal {
	future := now.AddDate(0, 0, 20).Format(time.RFC3339)
	return []core.Deal{
		{
			DealID:         "laptops-10",
			MerchantName:   "TechWorld",
			CashbackType:   "percent",
			Cashback:       10,
			Categories:     []string{"tech"},
			ExpirationDate: future,
		},
		{
			DealID:         "phones-5",
			MerchantName:   "TechWorld",
			CashbackType:   "percent",
			Cashback:       5,
			Categories:     []string{"tech"},
			ExpirationDate: future,
		},
		{
			DealID:         "pizza-15",
			MerchantName:   "PizzaPlanet",
			CashbackType:   "fixed",
			Cashback:       15,
			Categories:     []string{"food"},
			ExpirationDate: future,
		},
		{
			DealID:         "gone-deal",
			MerchantName:   "OldShop",
			CashbackType:   "percent",
			Cashback:       50,
			Categories:     []string{"tech"},
			ExpirationDate: now.AddDate(0, 0, -5).Format(time.RFC3339),
		},
	}
}

func newTestEngine(t *testing.T) (*Engine, *store.MemoryTableStore) {
	t.Helper()
	ts := store.NewMemoryTableStore("")
	ts.SetCell(core.TableMerchants, "TechWorld", "description", "laptops phones gadgets electronics")
	ts.SetCell(core.TableMerchants, "PizzaPlanet", "description", "pizza pasta delivery")

	e := New(ts,
		WithConfig(core.EngineConfig{VectorLen: 128, SimilarThreshold: 0.5}),
		WithClock(func() time.Time { return now }),
	)
	e.Load(context.Background())
	e.BuildFromCatalog(context.Background(), testDeals())
	return e, ts
}

func TestEngine_BuildFromCatalog(t *testing.T) {
	e, ts := newTestEngine(t)

	if got := e.Index().Len(); got != 4 {
		t.Errorf("index size = %d, want 4", got)
	}

	g := e.Graph()
	for _, key := range []string{"laptops-10", "phones-5", "pizza-15"} {
		node, ok := g.GetNode(key)
		if !ok || node.Type != graph.NodeDeal {
			t.Errorf("deal node %s missing or mistyped", key)
		}
	}
	if node, ok := g.GetNode("TechWorld"); !ok || node.Type != graph.NodeMerchant {
		t.Error("merchant node missing")
	}
	if !g.HasEdge("laptops-10", "TechWorld", graph.EdgeOfferedBy) {
		t.Error("offered_by edge missing")
	}
	if !g.HasEdge("laptops-10", "tech", graph.EdgeBelongsTo) {
		t.Error("belongs_to edge missing")
	}

	// Same merchant, same category, overlapping description text.
	if !g.HasEdge("laptops-10", "phones-5", graph.EdgeSimilar) {
		t.Error("similar edge between TechWorld deals missing")
	}

	if _, ok := ts.GetRow(core.TableDeals, "laptops-10"); !ok {
		t.Error("deal row not persisted")
	}
}

func TestEngine_GraphPathway(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	profile := core.NewUserProfile("u1")
	profile.AddInterest("tech")
	e.RegisterUser(ctx, profile)

	items := e.GetRecommendations(ctx, "u1", 10)
	if len(items) != 3 {
		t.Fatalf("len(items) = %d, want 3 (expired excluded)", len(items))
	}
	// Both tech deals beat the food deal on interest overlap.
	top := map[string]bool{items[0].ID: true, items[1].ID: true}
	if !top["laptops-10"] || !top["phones-5"] {
		t.Errorf("top two = %v, want the tech deals", top)
	}

	// An activation pushes the activated deal to the very top.
	e.RecordInteraction(ctx, "u1", "phones-5", graph.KindActivate)
	items = e.GetRecommendations(ctx, "u1", 10)
	if items[0].ID != "phones-5" {
		t.Errorf("top after activation = %s, want phones-5", items[0].ID)
	}
}

func TestEngine_GraphPathwayUnknownUser(t *testing.T) {
	e, _ := newTestEngine(t)
	if items := e.GetRecommendations(context.Background(), "ghost", 5); len(items) != 0 {
		t.Errorf("len(items) = %d, want 0 for unknown user", len(items))
	}
}

func TestEngine_VectorPathway(t *testing.T) {
	e, ts := newTestEngine(t)
	ctx := context.Background()

	profile := core.NewUserProfile("u1")
	profile.AddInterest("pizza")
	profile.AddInterest("pasta")

	items := e.GetPersonalizedRecommendations(ctx, profile, 2)
	if len(items) == 0 {
		t.Fatal("expected vector pathway results")
	}
	if items[0].ID != "pizza-15" {
		t.Errorf("top = %s, want pizza-15", items[0].ID)
	}
	for i := 1; i < len(items); i++ {
		if items[i-1].Score < items[i].Score {
			t.Errorf("not sorted by confidence: %v < %v", items[i-1].Score, items[i].Score)
		}
	}

	// The ranked list is persisted keyed by rank position.
	row, ok := ts.GetRow(core.TableRecommendations, "0")
	if !ok {
		t.Fatal("recommendations row 0 missing")
	}
	if row["dealId"] != "pizza-15" {
		t.Errorf("persisted rank 0 = %v, want pizza-15", row["dealId"])
	}
}

func TestEngine_VectorPathwayRejectsEmptyProfile(t *testing.T) {
	e, _ := newTestEngine(t)

	if items := e.GetPersonalizedRecommendations(context.Background(), nil, 5); items != nil {
		t.Error("nil profile must yield empty result")
	}

	// A profile with no signals hashes to the degenerate zero vector.
	empty := core.NewUserProfile("u2")
	if items := e.GetPersonalizedRecommendations(context.Background(), empty, 5); len(items) != 0 {
		t.Error("empty profile must yield empty result, not an error")
	}
}

func TestEngine_HydrateProfile(t *testing.T) {
	ts := store.NewMemoryTableStore("")
	ts.SetRow(core.TableSurveyAnswers, "q1", core.Row{"question": "favorite category", "answer": "electronics"})
	ts.SetRow(core.TableSurveyAnswers, "q2", core.Row{"question": "shopping style", "answer": ""}) // incomplete, skipped
	ts.SetRow(core.TableGeolocation, core.RowUserGeo, core.Row{"countryCode": "SE", "ip": "192.0.2.1"})

	e := New(ts)
	profile := core.NewUserProfile("u1")
	e.HydrateProfile(profile)

	if profile.SurveyAnswers["favorite category"] != "electronics" {
		t.Errorf("survey answers = %v, want favorite category filled", profile.SurveyAnswers)
	}
	if len(profile.SurveyAnswers) != 1 {
		t.Errorf("survey answers = %v, want incomplete rows skipped", profile.SurveyAnswers)
	}
	if profile.Geo == nil || profile.Geo.CountryCode != "SE" {
		t.Errorf("geo = %+v, want SE", profile.Geo)
	}

	// Signals already on the profile are not overwritten.
	custom := core.NewUserProfile("u2")
	custom.Geo = &core.Geolocation{CountryCode: "DE"}
	custom.SurveyAnswers["q"] = "a"
	e.HydrateProfile(custom)
	if custom.Geo.CountryCode != "DE" || len(custom.SurveyAnswers) != 1 {
		t.Error("hydration must not overwrite existing profile signals")
	}
}

func TestEngine_InteractionReplay(t *testing.T) {
	ts := store.NewMemoryTableStore("")
	rec := graph.Record{ID: "r1", UserID: "u1", DealID: "d1", Kind: graph.KindClick, Timestamp: now}
	ts.SetRow(core.TableInteractions, rec.ID, rec.Row())

	e := New(ts, WithClock(func() time.Time { return now }))

	if n := e.LoadInteractions(context.Background()); n != 1 {
		t.Fatalf("first load folded %d, want 1", n)
	}
	// Loading again must not double the counters.
	if n := e.LoadInteractions(context.Background()); n != 0 {
		t.Fatalf("second load folded %d, want 0", n)
	}

	edge, ok := e.Graph().GetEdge("u1", "d1", graph.EdgeInterestedIn)
	if !ok {
		t.Fatal("interaction edge missing after replay")
	}
	if edge.Counters[graph.AttrClick] != 1 {
		t.Errorf("click = %v, want 1", edge.Counters[graph.AttrClick])
	}
}

func TestEngine_RecordInteractionValidation(t *testing.T) {
	e, ts := newTestEngine(t)
	ctx := context.Background()

	e.RecordInteraction(ctx, "", "d1", graph.KindView)
	e.RecordInteraction(ctx, "u1", "", graph.KindView)
	e.RecordInteraction(ctx, "u1", "d1", "purchase")

	if rows, ok := ts.GetTable(core.TableInteractions); ok && len(rows) > 0 {
		t.Errorf("invalid interactions persisted: %v", rows)
	}

	e.RecordInteraction(ctx, "u1", "laptops-10", graph.KindView)
	rows, ok := ts.GetTable(core.TableInteractions)
	if !ok || len(rows) != 1 {
		t.Fatalf("interactions table = %v, want single row", rows)
	}
}
