package reservations

import (
	"context"
	"errors"
	"sync"
	"testing"

	"cafehub/apperr"
	"cafehub/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func tableReq() CreateRequest {
	return CreateRequest{CafeID: "c1", TableID: "t1", Date: "2025-03-01", Time: "19:30", NumberOfPeople: 2}
}

func TestTableReserveAndCancel(t *testing.T) {
	svc, _, l := fixture()

	res, err := svc.Create(ctx, customerP, models.ReservationTable, tableReq())
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingApproval, res.Status)
	assert.Equal(t, "c1", res.CafeID)
	assert.Equal(t, "cust1", res.UserID)
	assert.Equal(t, models.TableReserved, l.tables["t1"])

	out, err := svc.SetStatus(ctx, customerP, res.ID, models.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, out.Status)
	assert.Equal(t, models.TableAvailable, l.tables["t1"])

	// cancelling again is a no-op
	out, err = svc.SetStatus(ctx, customerP, res.ID, models.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, out.Status)
	reserves, releases := l.counts()
	assert.Equal(t, 1, reserves)
	assert.Equal(t, 1, releases)
}

func TestConcurrentTableReservationsOneWins(t *testing.T) {
	svc, store, _ := fixture()

	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = svc.Create(ctx, customerP, models.ReservationTable, tableReq())
		}(i)
	}
	close(start)
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperr.Is(err, apperr.KindConflict):
			conflicts++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)
	assert.Len(t, store.rows, 1)
}

func TestCinemaSeats(t *testing.T) {
	svc, _, l := fixture()

	res, err := svc.Create(ctx, customerP, models.ReservationCinema, CreateRequest{
		CafeID: "c1", SessionID: "s1", SeatNumbers: []string{"A1", "a2"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2"}, res.SeatNumbers)
	assert.Equal(t, 2, res.NumberOfPeople)
	assert.Equal(t, 25.0, res.TotalPrice)
	assert.Equal(t, "2025-03-01", res.Date)
	assert.Equal(t, 8, l.seats["s1"].available)
	assert.True(t, l.seats["s1"].occupied["A1"])
	assert.True(t, l.seats["s1"].occupied["A2"])

	_, err = svc.Create(ctx, customerP, models.ReservationCinema, CreateRequest{
		CafeID: "c1", SessionID: "s1", SeatNumbers: []string{"A1"},
	})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, 8, l.seats["s1"].available)

	_, err = svc.SetStatus(ctx, adminP, res.ID, models.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, 10, l.seats["s1"].available)
	assert.Empty(t, l.seats["s1"].occupied)
}

func TestOneLedgerCallPerCreateOfMatchingType(t *testing.T) {
	reqs := map[string]CreateRequest{
		models.ReservationTable:     tableReq(),
		models.ReservationCoworking: {CafeID: "c1", DeskID: "d1", Date: "2025-03-01", Time: "09:00"},
		models.ReservationCinema:    {CafeID: "c1", SessionID: "s1", SeatNumbers: []string{"B4"}},
		models.ReservationEvent:     {CafeID: "c1", SessionID: "es1", EventID: "ev1", NumberOfPeople: 3},
	}
	for kind, req := range reqs {
		t.Run(kind, func(t *testing.T) {
			svc, _, l := fixture()
			res, err := svc.Create(ctx, customerP, kind, req)
			require.NoError(t, err)
			assert.Equal(t, kind, res.Type)
			assert.Equal(t, []string{kind}, l.reserves)
			assert.Empty(t, l.releases)
		})
	}
}

func TestEventSpots(t *testing.T) {
	svc, _, l := fixture()

	res, err := svc.Create(ctx, customerP, models.ReservationEvent, CreateRequest{CafeID: "c1", SessionID: "es1", NumberOfPeople: 4})
	require.NoError(t, err)
	assert.Equal(t, "ev1", res.EventID)
	assert.Equal(t, 32.0, res.TotalPrice)
	assert.Equal(t, 1, l.spots["es1"])

	_, err = svc.Create(ctx, customerP, models.ReservationEvent, CreateRequest{CafeID: "c1", SessionID: "es1", NumberOfPeople: 2})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = svc.Create(ctx, customerP, models.ReservationEvent, CreateRequest{CafeID: "c1", SessionID: "es1", EventID: "other", NumberOfPeople: 1})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.SetStatus(ctx, customerP, res.ID, models.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, 5, l.spots["es1"])
}

func TestCreateValidation(t *testing.T) {
	svc, _, l := fixture()

	_, err := svc.Create(ctx, customerP, models.ReservationTable, CreateRequest{TableID: "t1", Date: "2025-03-01", Time: "19:00"})
	assert.EqualError(t, err, "validation: cafe_id is required")

	_, err = svc.Create(ctx, customerP, models.ReservationTable, CreateRequest{CafeID: "c1", Date: "2025-03-01", Time: "19:00"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.Create(ctx, customerP, models.ReservationCinema, CreateRequest{CafeID: "c1", SessionID: "s1", SeatNumbers: []string{"A1", "A1"}})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.Create(ctx, customerP, "spa", CreateRequest{CafeID: "c1"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	// café c2 has no cinema
	_, err = svc.Create(ctx, customerP, models.ReservationCinema, CreateRequest{CafeID: "c2", SessionID: "s1", SeatNumbers: []string{"A1"}})
	assert.Equal(t, apperr.KindPermission, apperr.KindOf(err))

	// staff cannot book into another café
	_, err = svc.Create(ctx, otherP, models.ReservationTable, tableReq())
	assert.Equal(t, apperr.KindPermission, apperr.KindOf(err))

	reserves, _ := l.counts()
	assert.Zero(t, reserves)
}

func TestPermissions(t *testing.T) {
	svc, _, _ := fixture()
	res, err := svc.Create(ctx, customerP, models.ReservationTable, tableReq())
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, customerP, res.ID, models.StatusConfirmed)
	assert.Equal(t, apperr.KindPermission, apperr.KindOf(err))

	_, err = svc.SetStatus(ctx, strangerP, res.ID, models.StatusCancelled)
	assert.Equal(t, apperr.KindPermission, apperr.KindOf(err))

	_, err = svc.Get(ctx, otherP, res.ID)
	assert.Equal(t, apperr.KindPermission, apperr.KindOf(err))

	_, err = svc.SetStatus(ctx, otherP, res.ID, models.StatusConfirmed)
	assert.Equal(t, apperr.KindPermission, apperr.KindOf(err))

	out, err := svc.SetStatus(ctx, adminP, res.ID, models.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, out.Status)

	_, err = svc.SetStatus(ctx, adminP, res.ID, "archived")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestTerminalStatesAndNoOp(t *testing.T) {
	svc, _, l := fixture()
	res, err := svc.Create(ctx, customerP, models.ReservationTable, tableReq())
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, adminP, res.ID, models.StatusCompleted)
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, adminP, res.ID, models.StatusCancelled)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	same, err := svc.SetStatus(ctx, adminP, res.ID, models.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, same.Status)
	_, releases := l.counts()
	assert.Zero(t, releases)
}

func TestConcurrentCancelReleasesOnce(t *testing.T) {
	svc, _, l := fixture()
	res, err := svc.Create(ctx, customerP, models.ReservationTable, tableReq())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SetStatus(ctx, adminP, res.ID, models.StatusCancelled)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	_, releases := l.counts()
	assert.Equal(t, 1, releases)
}

func TestFailedInsertGivesClaimBack(t *testing.T) {
	svc, store, l := fixture()
	store.failInsert = true

	_, err := svc.Create(ctx, customerP, models.ReservationTable, tableReq())
	assert.Equal(t, apperr.KindUnavailable, apperr.KindOf(err))
	assert.Equal(t, models.TableAvailable, l.tables["t1"])
	reserves, releases := l.counts()
	assert.Equal(t, 1, reserves)
	assert.Equal(t, 1, releases)
}

func TestFailedReleaseRevertsCancel(t *testing.T) {
	svc, store, l := fixture()
	res, err := svc.Create(ctx, customerP, models.ReservationTable, tableReq())
	require.NoError(t, err)

	l.failRelease = true
	_, err = svc.SetStatus(ctx, customerP, res.ID, models.StatusCancelled)
	require.Error(t, err)
	assert.Equal(t, models.StatusPendingApproval, store.rows[res.ID].Status)

	l.failRelease = false
	_, err = svc.SetStatus(ctx, customerP, res.ID, models.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.TableAvailable, l.tables["t1"])
}

func TestHooksSeeEveryChange(t *testing.T) {
	svc, _, _ := fixture()
	var seen []string
	svc.OnChange(func(_ context.Context, ch Change) error {
		seen = append(seen, ch.Action+":"+ch.From+">"+ch.Reservation.Status)
		return nil
	})
	svc.OnChange(func(context.Context, Change) error { return errors.New("broadcast down") })

	res, err := svc.Create(ctx, customerP, models.ReservationTable, tableReq())
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, adminP, res.ID, models.StatusConfirmed)
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, adminP, res.ID, models.StatusConfirmed)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"created:>pending_approval",
		"status_changed:pending_approval>confirmed",
	}, seen)
}

func TestListScopes(t *testing.T) {
	svc, _, _ := fixture()
	_, err := svc.Create(ctx, customerP, models.ReservationTable, tableReq())
	require.NoError(t, err)
	_, err = svc.Create(ctx, strangerP, models.ReservationCoworking, CreateRequest{CafeID: "c1", DeskID: "d1", Date: "2025-03-01", Time: "09:00"})
	require.NoError(t, err)

	mine, err := svc.List(ctx, customerP, ListQuery{})
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	all, err := svc.List(ctx, adminP, ListQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, err := svc.List(ctx, otherP, ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = svc.List(ctx, otherP, ListQuery{CafeID: "c1"})
	assert.Equal(t, apperr.KindPermission, apperr.KindOf(err))
}

func TestStateMachine(t *testing.T) {
	assert.True(t, CanTransition(models.StatusPendingApproval, models.StatusRejected))
	assert.True(t, CanTransition(models.StatusConfirmed, models.StatusCompleted))
	assert.False(t, CanTransition(models.StatusConfirmed, models.StatusRejected))
	assert.False(t, CanTransition(models.StatusCancelled, models.StatusConfirmed))
	assert.True(t, Terminal(models.StatusRejected))
	assert.False(t, Terminal(models.StatusConfirmed))
	assert.False(t, ValidStatus("archived"))
}
