package matching

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/flippy-trade/internal/apperr"
	"github.com/rajivgeraev/flippy-trade/internal/db/dbtest"
	"github.com/rajivgeraev/flippy-trade/internal/geo"
	"github.com/rajivgeraev/flippy-trade/internal/models"
	"github.com/rajivgeraev/flippy-trade/internal/notify"
	"github.com/rajivgeraev/flippy-trade/internal/services/visibility"
)

type fixture struct {
	ctx    context.Context
	store  *dbtest.MemStore
	sink   *notify.Recorder
	engine *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := dbtest.NewMemStore()
	sink := &notify.Recorder{}
	resolver := geo.NewResolver(nil, nil, geo.Options{})
	return &fixture{
		ctx:    context.Background(),
		store:  store,
		sink:   sink,
		engine: NewEngine(store, visibility.NewFilter(store), resolver, sink),
	}
}

func (f *fixture) user(t *testing.T, location string) uuid.UUID {
	t.Helper()
	return f.store.AddUser(models.User{Location: location}).ID
}

func (f *fixture) item(t *testing.T, owner uuid.UUID, category string, mutate ...func(*models.Item)) models.Item {
	t.Helper()
	item := models.Item{
		ID:          uuid.New(),
		OwnerID:     owner,
		Title:       category + " item",
		Category:    category,
		Condition:   "good",
		IsAvailable: true,
		Status:      models.ItemStatusPublished,
	}
	for _, m := range mutate {
		m(&item)
	}
	require.NoError(t, f.store.CreateItem(f.ctx, &item))
	return item
}

func ids(items []models.Item) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(items))
	for _, i := range items {
		out = append(out, i.ID)
	}
	return out
}

func (f *fixture) candidates(t *testing.T, viewer uuid.UUID, lens uuid.UUID, radius Radius) []uuid.UUID {
	t.Helper()
	items, err := f.engine.FindCandidates(f.ctx, viewer, lens, radius)
	require.NoError(t, err)
	return ids(items)
}

var nationwide = Radius{Nationwide: true}

func TestFindCandidates_ReciprocalCategories(t *testing.T) {
	f := newFixture(t)
	viewer, owner := f.user(t, ""), f.user(t, "")

	lens := f.item(t, viewer, "Electronics", func(i *models.Item) {
		i.LookingFor.Categories = []string{"Fashion"}
	})
	candidate := f.item(t, owner, "Fashion", func(i *models.Item) {
		i.LookingFor.Categories = []string{"Electronics"}
	})

	assert.Equal(t, []uuid.UUID{candidate.ID}, f.candidates(t, viewer, lens.ID, nationwide))

	candidate.LookingFor.Categories = []string{"Home"}
	require.NoError(t, f.store.UpdateItem(f.ctx, &candidate))
	assert.Empty(t, f.candidates(t, viewer, lens.ID, nationwide))
}

func TestFindCandidates_Radius(t *testing.T) {
	f := newFixture(t)
	viewer := f.user(t, "47.6,-122.3")
	farOwner := f.user(t, "34.0,-118.2")
	nearOwner := f.user(t, "47.61,-122.33")
	unknownOwner := f.user(t, "somewhere unresolvable")

	lens := f.item(t, viewer, "Books")
	far := f.item(t, farOwner, "Books")
	near := f.item(t, nearOwner, "Books")
	unknown := f.item(t, unknownOwner, "Books")

	got := f.candidates(t, viewer, lens.ID, Radius{Miles: 10})
	assert.ElementsMatch(t, []uuid.UUID{near.ID, unknown.ID}, got)
	assert.NotContains(t, got, far.ID)

	got = f.candidates(t, viewer, lens.ID, nationwide)
	assert.ElementsMatch(t, []uuid.UUID{near.ID, unknown.ID, far.ID}, got)
}

func TestFindCandidates_UnresolvableViewerFailsOpen(t *testing.T) {
	f := newFixture(t)
	viewer := f.user(t, "")
	farOwner := f.user(t, "34.0,-118.2")

	lens := f.item(t, viewer, "Books")
	far := f.item(t, farOwner, "Books")

	assert.Equal(t, []uuid.UUID{far.ID}, f.candidates(t, viewer, lens.ID, Radius{Miles: 1}))
}

func TestFindCandidates_NonFiniteLocationsFailOpen(t *testing.T) {
	f := newFixture(t)
	viewer := f.user(t, "47.6,-122.3")
	nanOwner := f.user(t, "nan,0")
	nearOwner := f.user(t, "47.61,-122.33")

	lens := f.item(t, viewer, "Books")
	odd := f.item(t, nanOwner, "Books")
	near := f.item(t, nearOwner, "Books")

	assert.ElementsMatch(t, []uuid.UUID{odd.ID, near.ID}, f.candidates(t, viewer, lens.ID, Radius{Miles: 10}))

	nanViewer := f.user(t, "NaN,NaN")
	nanLens := f.item(t, nanViewer, "Books")
	assert.ElementsMatch(t, []uuid.UUID{lens.ID, odd.ID, near.ID}, f.candidates(t, nanViewer, nanLens.ID, Radius{Miles: 10}))
}

// pointLocator отдаёт заранее заданные точки, в том числе некорректные
type pointLocator map[string]geo.Point

func (l pointLocator) Resolve(_ context.Context, location string) (geo.Point, bool) {
	p, ok := l[location]
	return p, ok
}

func TestFindCandidates_UndefinedDistanceKeepsCandidate(t *testing.T) {
	f := newFixture(t)
	f.engine = NewEngine(f.store, visibility.NewFilter(f.store), pointLocator{
		"home": {Lat: 47.6, Lng: -122.3},
		"void": {Lat: math.NaN(), Lng: 0},
		"la":   {Lat: 34.0, Lng: -118.2},
	}, f.sink)

	viewer := f.user(t, "home")
	lens := f.item(t, viewer, "Books")
	void := f.item(t, f.user(t, "void"), "Books")
	f.item(t, f.user(t, "la"), "Books")

	assert.Equal(t, []uuid.UUID{void.ID}, f.candidates(t, viewer, lens.ID, Radius{Miles: 10}))
}

func TestFindCandidates_VisibilityInvariants(t *testing.T) {
	f := newFixture(t)
	viewer, owner := f.user(t, ""), f.user(t, "")
	lens := f.item(t, viewer, "Toys")
	f.item(t, viewer, "Toys") // собственная вещь не может быть кандидатом

	visible := f.item(t, owner, "Toys")
	f.item(t, owner, "Toys", func(i *models.Item) { i.Status = models.ItemStatusDraft })
	f.item(t, owner, "Toys", func(i *models.Item) { i.Status = models.ItemStatusRemoved })
	f.item(t, owner, "Toys", func(i *models.Item) { i.IsAvailable = false })
	f.item(t, owner, "Toys", func(i *models.Item) { i.IsHidden = true })

	assert.Equal(t, []uuid.UUID{visible.ID}, f.candidates(t, viewer, lens.ID, nationwide))
}

func TestFindCandidates_NewestFirst(t *testing.T) {
	f := newFixture(t)
	viewer, owner := f.user(t, ""), f.user(t, "")
	lens := f.item(t, viewer, "Toys")

	first := f.item(t, owner, "Toys")
	second := f.item(t, owner, "Toys")
	third := f.item(t, owner, "Toys")

	assert.Equal(t, []uuid.UUID{third.ID, second.ID, first.ID}, f.candidates(t, viewer, lens.ID, nationwide))
}

func TestFindCandidates_BlockSymmetry(t *testing.T) {
	f := newFixture(t)
	a, b := f.user(t, ""), f.user(t, "")
	lensA := f.item(t, a, "Games")
	lensB := f.item(t, b, "Games")

	_, err := f.store.InsertBlock(f.ctx, a, b)
	require.NoError(t, err)

	assert.Empty(t, f.candidates(t, a, lensA.ID, nationwide))
	assert.Empty(t, f.candidates(t, b, lensB.ID, nationwide))
}

func TestFindCandidates_LockedItemsExcluded(t *testing.T) {
	f := newFixture(t)
	viewer, owner := f.user(t, ""), f.user(t, "")
	lens := f.item(t, viewer, "Games")
	locked := f.item(t, owner, "Games")
	free := f.item(t, owner, "Games")

	require.NoError(t, f.store.CreateTrade(f.ctx, &models.TradeConversation{
		ID:               uuid.New(),
		RequesterID:      viewer,
		OwnerID:          owner,
		RequesterItemIDs: []uuid.UUID{lens.ID},
		OwnerItemIDs:     []uuid.UUID{locked.ID},
		Status:           models.TradeStatusPending,
	}))

	assert.Equal(t, []uuid.UUID{free.ID}, f.candidates(t, viewer, lens.ID, nationwide))
}

func TestFindCandidates_LensGuards(t *testing.T) {
	f := newFixture(t)
	viewer, other := f.user(t, ""), f.user(t, "")
	foreign := f.item(t, other, "Games")

	_, err := f.engine.FindCandidates(f.ctx, viewer, foreign.ID, nationwide)
	assert.ErrorIs(t, err, apperr.ErrAuthorization)

	_, err = f.engine.FindCandidates(f.ctx, viewer, uuid.New(), nationwide)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRejectItem_Specificity(t *testing.T) {
	f := newFixture(t)
	user, owner := f.user(t, ""), f.user(t, "")
	lens := f.item(t, user, "Art")
	otherLens := f.item(t, user, "Art")
	target := f.item(t, owner, "Art")

	// глобальный отказ скрывает вещь для всех линз
	require.NoError(t, f.engine.RejectItem(f.ctx, user, target.ID, nil))
	assert.Empty(t, f.candidates(t, user, lens.ID, nationwide))
	assert.Empty(t, f.candidates(t, user, otherLens.ID, nationwide))

	// парный отказ заменяет глобальный
	require.NoError(t, f.engine.RejectItem(f.ctx, user, target.ID, &lens.ID))
	assert.Empty(t, f.candidates(t, user, lens.ID, nationwide))
	assert.Equal(t, []uuid.UUID{target.ID}, f.candidates(t, user, otherLens.ID, nationwide))

	records := f.store.Rejections(user)
	require.Len(t, records, 1)
	assert.False(t, records[0].IsGlobal())
	assert.Equal(t, lens.ID, *records[0].MyItemID)
}

func TestRejectItem_Idempotent(t *testing.T) {
	f := newFixture(t)
	user, owner := f.user(t, ""), f.user(t, "")
	lens := f.item(t, user, "Art")
	target := f.item(t, owner, "Art")

	require.NoError(t, f.engine.RejectItem(f.ctx, user, target.ID, &lens.ID))
	require.NoError(t, f.engine.RejectItem(f.ctx, user, target.ID, &lens.ID))
	assert.Len(t, f.store.Rejections(user), 1)
}

func TestRejectItem_RepeatedPairRemovesLaterGlobal(t *testing.T) {
	f := newFixture(t)
	user, owner := f.user(t, ""), f.user(t, "")
	lens := f.item(t, user, "Art")
	otherLens := f.item(t, user, "Art")
	target := f.item(t, owner, "Art")

	require.NoError(t, f.engine.RejectItem(f.ctx, user, target.ID, &lens.ID))
	require.NoError(t, f.engine.RejectItem(f.ctx, user, target.ID, nil))
	assert.Len(t, f.store.Rejections(user), 2)

	require.NoError(t, f.engine.RejectItem(f.ctx, user, target.ID, &lens.ID))
	records := f.store.Rejections(user)
	require.Len(t, records, 1)
	assert.False(t, records[0].IsGlobal())
	assert.Equal(t, []uuid.UUID{target.ID}, f.candidates(t, user, otherLens.ID, nationwide))
}

func TestRejectItem_CleanupFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	user, owner := f.user(t, ""), f.user(t, "")
	lens := f.item(t, user, "Art")
	target := f.item(t, owner, "Art")

	require.NoError(t, f.engine.RejectItem(f.ctx, user, target.ID, nil))
	f.store.DeleteGlobalRejectionErr = errors.New("connection reset")

	require.NoError(t, f.engine.RejectItem(f.ctx, user, target.ID, &lens.ID))
	assert.Len(t, f.store.Rejections(user), 2)
	assert.Empty(t, f.candidates(t, user, lens.ID, nationwide))
}

func TestRejectItem_Guards(t *testing.T) {
	f := newFixture(t)
	user, owner := f.user(t, ""), f.user(t, "")
	mine := f.item(t, user, "Art")
	theirs := f.item(t, owner, "Art")
	alsoTheirs := f.item(t, owner, "Art")

	assert.ErrorIs(t, f.engine.RejectItem(f.ctx, user, mine.ID, nil), apperr.ErrValidation)
	assert.ErrorIs(t, f.engine.RejectItem(f.ctx, user, theirs.ID, &alsoTheirs.ID), apperr.ErrAuthorization)
	assert.ErrorIs(t, f.engine.RejectItem(f.ctx, user, uuid.New(), nil), apperr.ErrNotFound)
}

func TestLike_SymmetryProducesMatch(t *testing.T) {
	for _, aFirst := range []bool{true, false} {
		f := newFixture(t)
		a, b := f.user(t, ""), f.user(t, "")
		i1 := f.item(t, a, "Music")
		i2 := f.item(t, b, "Music")

		likeA := func() { _, err := f.engine.Like(f.ctx, a, i2.ID); require.NoError(t, err) }
		likeB := func() { _, err := f.engine.Like(f.ctx, b, i1.ID); require.NoError(t, err) }
		if aFirst {
			likeA()
			likeB()
		} else {
			likeB()
			likeA()
		}

		mutual, err := f.engine.IsMutual(f.ctx, a, i2.ID, b, i1.ID)
		require.NoError(t, err)
		assert.True(t, mutual)

		events := f.sink.OfType(notify.EventMatchCreated)
		require.Len(t, events, 2)
		assert.ElementsMatch(t, []uuid.UUID{a, b}, []uuid.UUID{events[0].UserID, events[1].UserID})
	}
}

func TestLike_ReturnsMatchesAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	a, b := f.user(t, ""), f.user(t, "")
	i1 := f.item(t, a, "Music")
	i2 := f.item(t, b, "Music")

	matches, err := f.engine.Like(f.ctx, a, i2.ID)
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = f.engine.Like(f.ctx, b, i1.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, models.Match{MyItemID: i2.ID, TheirItemID: i1.ID, OtherUserID: a, MatchedAt: matches[0].MatchedAt}, matches[0])

	// Время совпадения одинаково при лайке и при чтении: это время второго лайка
	forB, err := f.engine.Matches(f.ctx, b)
	require.NoError(t, err)
	require.Len(t, forB, 1)
	assert.Equal(t, forB[0].MatchedAt, matches[0].MatchedAt)
	bLikes, err := f.store.LikesByUser(f.ctx, b)
	require.NoError(t, err)
	require.Len(t, bLikes, 1)
	assert.Equal(t, bLikes[0].CreatedAt, matches[0].MatchedAt)

	_, err = f.engine.Like(f.ctx, b, i1.ID)
	require.NoError(t, err)
	assert.Len(t, f.sink.OfType(notify.EventMatchCreated), 2)

	forA, err := f.engine.Matches(f.ctx, a)
	require.NoError(t, err)
	require.Len(t, forA, 1)
	assert.Equal(t, i1.ID, forA[0].MyItemID)
	assert.Equal(t, i2.ID, forA[0].TheirItemID)
	assert.Equal(t, b, forA[0].OtherUserID)

	// совпадение производное: после снятия лайка его больше нет
	require.NoError(t, f.engine.Unlike(f.ctx, a, i2.ID))
	forA, err = f.engine.Matches(f.ctx, a)
	require.NoError(t, err)
	assert.Empty(t, forA)

	assert.ErrorIs(t, f.engine.Unlike(f.ctx, a, i2.ID), apperr.ErrNotFound)
}

func TestLike_Guards(t *testing.T) {
	f := newFixture(t)
	a, b := f.user(t, ""), f.user(t, "")
	own := f.item(t, a, "Music")
	draft := f.item(t, b, "Music", func(i *models.Item) { i.Status = models.ItemStatusDraft })
	theirs := f.item(t, b, "Music")

	_, err := f.engine.Like(f.ctx, a, own.ID)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.engine.Like(f.ctx, a, draft.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.store.InsertBlock(f.ctx, b, a)
	require.NoError(t, err)
	_, err = f.engine.Like(f.ctx, a, theirs.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
