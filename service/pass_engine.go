package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"visitor-management/models"
	"visitor-management/pkg/locker"
	"visitor-management/pkg/qr"
	"visitor-management/repository"
)

const maxWriteAttempts = 3

type EngineDeps struct {
	Passes       PassStore
	Ledger       *Ledger
	QR           QRGenerator
	Visitors     VisitorLookup
	Appointments AppointmentLookup
	Numbers      PassNumberGenerator
	Locker       locker.Locker
	Notifier     Notifier
	Metrics      *Metrics
	Clock        func() time.Time
}

// PassEngine owns the pass lifecycle. Every mutation of a single pass runs
// under that pass's lock and is applied with a version-checked write. The
// lock keeps scans of one pass from contending; the version check, which
// also covers the last gate event a scan decides from, keeps them correct
// when the lock is not shared or has expired.
type PassEngine struct {
	passes       PassStore
	ledger       *Ledger
	qr           QRGenerator
	visitors     VisitorLookup
	appointments AppointmentLookup
	numbers      PassNumberGenerator
	locker       locker.Locker
	notifier     Notifier
	metrics      *Metrics
	now          func() time.Time
	maxAttempts  int
}

func NewPassEngine(deps EngineDeps) *PassEngine {
	e := &PassEngine{
		passes:       deps.Passes,
		ledger:       deps.Ledger,
		qr:           deps.QR,
		visitors:     deps.Visitors,
		appointments: deps.Appointments,
		numbers:      deps.Numbers,
		locker:       deps.Locker,
		notifier:     deps.Notifier,
		metrics:      deps.Metrics,
		now:          deps.Clock,
		maxAttempts:  maxWriteAttempts,
	}
	if e.numbers == nil {
		e.numbers = TimestampPassNumbers{}
	}
	if e.locker == nil {
		e.locker = locker.NewKeyedMutex()
	}
	if e.metrics == nil {
		e.metrics = NewMetrics(prometheus.NewRegistry())
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

type IssuePassInput struct {
	VisitorID     *primitive.ObjectID
	HostID        *primitive.ObjectID
	AppointmentID *primitive.ObjectID
	ValidFrom     *time.Time
	ValidTo       *time.Time
	IssuedBy      primitive.ObjectID
}

// IssuePass creates an active pass with its QR image already attached. A
// pass number collision is retried with a fresh number.
func (e *PassEngine) IssuePass(ctx context.Context, in IssuePassInput) (*models.Pass, error) {
	var empty []string
	if in.VisitorID == nil || in.VisitorID.IsZero() {
		empty = append(empty, "visitor")
	}
	if in.ValidFrom == nil || in.ValidFrom.IsZero() {
		empty = append(empty, "valid_from")
	}
	if in.ValidTo == nil || in.ValidTo.IsZero() {
		empty = append(empty, "valid_to")
	}
	if len(empty) > 0 {
		return nil, newValidationError(MsgMissingFields, empty...)
	}
	if !in.ValidFrom.Before(*in.ValidTo) {
		return nil, newValidationError("valid_from must be before valid_to", "valid_from", "valid_to")
	}

	if e.visitors != nil {
		if _, err := e.visitors.FindByID(ctx, *in.VisitorID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, newValidationError("visitor does not exist", "visitor")
			}
			return nil, fmt.Errorf("lookup visitor: %w", err)
		}
	}
	if in.AppointmentID != nil && e.appointments != nil {
		appt, err := e.appointments.FindByID(ctx, *in.AppointmentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, newValidationError("appointment does not exist", "appointment")
			}
			return nil, fmt.Errorf("lookup appointment: %w", err)
		}
		if appt.Status != models.AppointmentApproved {
			log.Warnf("issuing pass for visitor %s against %s appointment %s", in.VisitorID.Hex(), appt.Status, appt.ID.Hex())
		}
	}

	now := e.clock()
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		number := e.numbers.Next(now)
		payload, err := qr.PassPayload(number)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrQRGeneration, err)
		}
		image, err := e.qr.Generate(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrQRGeneration, err)
		}

		pass := &models.Pass{
			PassNumber:    number,
			QRData:        payload,
			QRImage:       image,
			VisitorID:     *in.VisitorID,
			HostID:        in.HostID,
			AppointmentID: in.AppointmentID,
			ValidFrom:     in.ValidFrom.UTC(),
			ValidTo:       in.ValidTo.UTC(),
			Status:        models.PassStatusActive,
			CreatedBy:     in.IssuedBy,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		err = e.passes.Create(ctx, pass)
		if err == nil {
			e.metrics.IncrementIssued()
			log.Infof("issued pass %s for visitor %s", pass.PassNumber, pass.VisitorID.Hex())
			return pass, nil
		}
		if !errors.Is(err, repository.ErrDuplicateKey) {
			return nil, fmt.Errorf("create pass: %w", err)
		}
		log.Warnf("pass number %s already taken (attempt %d/%d)", number, attempt, e.maxAttempts)
	}
	return nil, fmt.Errorf("%w: could not allocate a unique pass number", ErrConflict)
}

type ScanResult struct {
	Action models.CheckAction
	Pass   *models.Pass
	Log    *models.CheckLog
}

func (r *ScanResult) Message() string {
	if r.Action == models.CheckActionOut {
		return "Visitor checked out successfully"
	}
	return "Visitor checked in successfully"
}

// ScanPass records a gate scan. The action alternates IN, OUT, IN based on
// the latest check-log entry. Scans outside the validity window or of a
// cancelled pass are rejected; a scan after the window also marks the pass
// expired.
func (e *PassEngine) ScanPass(ctx context.Context, passID primitive.ObjectID, gate string, scannedBy *primitive.ObjectID) (res *ScanResult, err error) {
	start := time.Now()
	defer func() {
		e.metrics.ObserveScan(start)
		if err != nil {
			e.metrics.RecordRejection(err)
			return
		}
		e.metrics.RecordScan(res.Action)
	}()

	release, err := e.locker.Acquire(ctx, passLockKey(passID))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConflict, err)
	}
	defer release()

	gate = normalizeGate(gate)
	for attempt := 1; ; attempt++ {
		res, err = e.scanOnce(ctx, passID, gate, scannedBy)
		if !errors.Is(err, repository.ErrVersionConflict) {
			break
		}
		if attempt >= e.maxAttempts {
			return nil, fmt.Errorf("%w: pass %s", ErrConflict, passID.Hex())
		}
	}
	if err != nil {
		return nil, err
	}

	if res.Action == models.CheckActionIn && e.notifier != nil {
		e.notifier.PassCheckedIn(ctx, res.Pass, res.Log)
	}
	return res, nil
}

// ScanByQR resolves scanned QR content to a pass and scans it.
func (e *PassEngine) ScanByQR(ctx context.Context, qrData, gate string, scannedBy *primitive.ObjectID) (*ScanResult, error) {
	number, err := qr.ParsePassPayload(qrData)
	if err != nil {
		return nil, newValidationError("qr_data is not a valid pass code", "qr_data")
	}
	pass, err := e.passes.FindByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			e.metrics.RecordRejection(ErrNotFound)
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find pass by number: %w", err)
	}
	return e.ScanPass(ctx, pass.ID, gate, scannedBy)
}

func (e *PassEngine) scanOnce(ctx context.Context, passID primitive.ObjectID, gate string, scannedBy *primitive.ObjectID) (*ScanResult, error) {
	pass, err := e.load(ctx, passID)
	if err != nil {
		return nil, err
	}

	now := e.clock()
	pos := PositionAt(pass.ValidFrom, pass.ValidTo, now)

	var lastAction models.CheckAction
	if pos == WindowOpen && scannable(pass.Status) {
		action, at, err := e.lastEvent(ctx, pass)
		if err != nil {
			return nil, err
		}
		if at != nil {
			lastAction = action
			// Keep the ledger strictly ordered even if clocks disagree.
			if !now.After(*at) {
				now = at.Add(time.Millisecond)
			}
		}
	}

	decision := NextScan(pass.Status, pos, lastAction)
	if decision.Err != nil {
		if decision.Persist && decision.Status != pass.Status {
			if _, err := e.passes.UpdateStatus(ctx, pass.ID, pass.Version, decision.Status, now); err != nil {
				if errors.Is(err, repository.ErrVersionConflict) {
					return nil, err
				}
				return nil, fmt.Errorf("mark pass %s %s: %w", pass.ID.Hex(), decision.Status, err)
			}
			log.Infof("pass %s marked %s on scan at %s", pass.PassNumber, decision.Status, gate)
		}
		return nil, decision.Err
	}

	// The decision input is part of the conditional write: a concurrent
	// scan that read the same version fails here and retries on the new mark.
	mark := repository.ScanMark{Status: decision.Status, LastAction: decision.Action, LastLogAt: &now}
	updated, err := e.passes.ApplyScan(ctx, pass.ID, pass.Version, mark, now)
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("update pass %s status: %w", pass.ID.Hex(), err)
	}

	entry := &models.CheckLog{
		PassID:         pass.ID,
		Action:         decision.Action,
		Gate:           gate,
		SecurityUserID: scannedBy,
		CreatedAt:      now,
	}
	if err := e.ledger.Append(ctx, entry); err != nil {
		revertCtx := context.WithoutCancel(ctx)
		if _, rbErr := e.passes.ApplyScan(revertCtx, pass.ID, updated.Version, markOf(pass), now); rbErr != nil {
			log.Errorf("failed to revert pass %s to %s after ledger error: %v", pass.ID.Hex(), pass.Status, rbErr)
		}
		return nil, err
	}

	log.Infof("pass %s %s at %s", pass.PassNumber, entry.Action, gate)
	return &ScanResult{Action: entry.Action, Pass: updated, Log: entry}, nil
}

// lastEvent returns the newest gate event of pass. The mark stored on the
// pass wins; the ledger is read only for passes that carry none.
func (e *PassEngine) lastEvent(ctx context.Context, pass *models.Pass) (models.CheckAction, *time.Time, error) {
	if pass.LastLogAt != nil {
		return pass.LastAction, pass.LastLogAt, nil
	}
	last, err := e.ledger.MostRecentFor(ctx, pass.ID)
	if err != nil || last == nil {
		return "", nil, err
	}
	return last.Action, &last.CreatedAt, nil
}

type PassState struct {
	Pass          *models.Pass      `json:"pass"`
	LastLog       *models.CheckLog  `json:"last_log,omitempty"`
	DerivedStatus models.PassStatus `json:"derived_status"`
	InWindow      bool              `json:"in_window"`
}

// GetCurrentState reports the stored pass next to the status its ledger
// history implies. The two differ only after a failed write or a manual
// ledger edit.
func (e *PassEngine) GetCurrentState(ctx context.Context, passID primitive.ObjectID) (*PassState, error) {
	pass, err := e.load(ctx, passID)
	if err != nil {
		return nil, err
	}
	history, err := e.ledger.History(ctx, pass.ID)
	if err != nil {
		return nil, err
	}
	pos := PositionAt(pass.ValidFrom, pass.ValidTo, e.clock())

	state := &PassState{
		Pass:          pass,
		DerivedStatus: DeriveStatus(pass.Status, pos, history),
		InWindow:      pos == WindowOpen,
	}
	if n := len(history); n > 0 {
		last := history[n-1]
		state.LastLog = &last
	}
	return state, nil
}

func (e *PassEngine) GetPass(ctx context.Context, passID primitive.ObjectID) (*models.Pass, error) {
	return e.load(ctx, passID)
}

type PassUpdateInput struct {
	HostID    *primitive.ObjectID
	ValidFrom *time.Time
	ValidTo   *time.Time
}

// UpdatePass edits the host or the validity window. Moving the window also
// re-derives the status, so extending an expired pass reopens it.
func (e *PassEngine) UpdatePass(ctx context.Context, passID primitive.ObjectID, in PassUpdateInput) (*models.Pass, error) {
	release, err := e.locker.Acquire(ctx, passLockKey(passID))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConflict, err)
	}
	defer release()

	pass, err := e.load(ctx, passID)
	if err != nil {
		return nil, err
	}
	if pass.Status == models.PassStatusCancelled {
		return nil, ErrPassCancelled
	}

	from, to := pass.ValidFrom, pass.ValidTo
	changes := repository.PassChanges{HostID: in.HostID}
	if in.ValidFrom != nil {
		from = in.ValidFrom.UTC()
		changes.ValidFrom = &from
	}
	if in.ValidTo != nil {
		to = in.ValidTo.UTC()
		changes.ValidTo = &to
	}
	if !from.Before(to) {
		return nil, newValidationError("valid_from must be before valid_to", "valid_from", "valid_to")
	}

	now := e.clock()
	if changes.ValidFrom != nil || changes.ValidTo != nil {
		history, err := e.ledger.History(ctx, pass.ID)
		if err != nil {
			return nil, err
		}
		if derived := DeriveStatus(pass.Status, PositionAt(from, to, now), history); derived != pass.Status {
			changes.Status = derived
		}
	}

	updated, err := e.passes.UpdateDetails(ctx, pass.ID, pass.Version, changes, now)
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, fmt.Errorf("%w: pass %s", ErrConflict, pass.ID.Hex())
		}
		return nil, fmt.Errorf("update pass %s: %w", pass.ID.Hex(), err)
	}
	return updated, nil
}

// CancelPass revokes a pass. Cancelled passes can no longer be scanned.
func (e *PassEngine) CancelPass(ctx context.Context, passID primitive.ObjectID) (*models.Pass, error) {
	release, err := e.locker.Acquire(ctx, passLockKey(passID))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConflict, err)
	}
	defer release()

	for attempt := 1; ; attempt++ {
		pass, err := e.load(ctx, passID)
		if err != nil {
			return nil, err
		}
		next, err := CancelStatus(pass.Status)
		if err != nil {
			return nil, err
		}
		updated, err := e.passes.UpdateStatus(ctx, pass.ID, pass.Version, next, e.clock())
		if err == nil {
			log.Infof("pass %s cancelled", pass.PassNumber)
			return updated, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, fmt.Errorf("cancel pass %s: %w", pass.ID.Hex(), err)
		}
		if attempt >= e.maxAttempts {
			return nil, fmt.Errorf("%w: pass %s", ErrConflict, pass.ID.Hex())
		}
	}
}

// DeletePass removes the pass document. Its check-log entries are kept for
// audit.
func (e *PassEngine) DeletePass(ctx context.Context, passID primitive.ObjectID) error {
	release, err := e.locker.Acquire(ctx, passLockKey(passID))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	defer release()

	if err := e.passes.Delete(ctx, passID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete pass %s: %w", passID.Hex(), err)
	}
	return nil
}

// ReconcilePass rewrites the stored status and last gate event from the
// ledger history. It reports whether anything changed.
func (e *PassEngine) ReconcilePass(ctx context.Context, passID primitive.ObjectID) (*models.Pass, bool, error) {
	release, err := e.locker.Acquire(ctx, passLockKey(passID))
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrConflict, err)
	}
	defer release()

	for attempt := 1; ; attempt++ {
		pass, err := e.load(ctx, passID)
		if err != nil {
			return nil, false, err
		}
		history, err := e.ledger.History(ctx, pass.ID)
		if err != nil {
			return nil, false, err
		}
		now := e.clock()
		derived := DeriveStatus(pass.Status, PositionAt(pass.ValidFrom, pass.ValidTo, now), history)
		mark := markFromHistory(derived, history)
		if sameMark(mark, markOf(pass)) {
			return pass, false, nil
		}

		updated, err := e.passes.ApplyScan(ctx, pass.ID, pass.Version, mark, now)
		if err == nil {
			log.Warnf("pass %s reconciled from %s to %s", pass.PassNumber, pass.Status, derived)
			return updated, true, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, false, fmt.Errorf("reconcile pass %s: %w", pass.ID.Hex(), err)
		}
		if attempt >= e.maxAttempts {
			return nil, false, fmt.Errorf("%w: pass %s", ErrConflict, pass.ID.Hex())
		}
	}
}

// DeleteCheckLog removes one ledger entry and points the pass's last gate
// event at the newest remaining entry, so the next scan decides from what is
// left. The pass status is left alone; ReconcilePass recomputes it.
func (e *PassEngine) DeleteCheckLog(ctx context.Context, id primitive.ObjectID) (*models.CheckLog, error) {
	entry, err := e.ledger.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	release, err := e.locker.Acquire(ctx, passLockKey(entry.PassID))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConflict, err)
	}
	defer release()

	if err := e.ledger.Delete(ctx, id); err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		pass, err := e.load(ctx, entry.PassID)
		if errors.Is(err, ErrNotFound) {
			return entry, nil
		}
		if err != nil {
			return nil, err
		}
		history, err := e.ledger.History(ctx, pass.ID)
		if err != nil {
			return nil, err
		}
		mark := markFromHistory(pass.Status, history)
		if sameMark(mark, markOf(pass)) {
			return entry, nil
		}
		_, err = e.passes.ApplyScan(ctx, pass.ID, pass.Version, mark, e.clock())
		if err == nil {
			return entry, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, fmt.Errorf("update pass %s after log delete: %w", pass.ID.Hex(), err)
		}
		if attempt >= e.maxAttempts {
			return nil, fmt.Errorf("%w: pass %s", ErrConflict, pass.ID.Hex())
		}
	}
}

// ExpireOverdue marks every active or checked-out pass whose window has
// elapsed as expired.
func (e *PassEngine) ExpireOverdue(ctx context.Context) (int64, error) {
	n, err := e.passes.ExpireOverdue(ctx, e.clock())
	if err != nil {
		return 0, fmt.Errorf("expire overdue passes: %w", err)
	}
	e.metrics.AddSwept(n)
	return n, nil
}

func (e *PassEngine) load(ctx context.Context, passID primitive.ObjectID) (*models.Pass, error) {
	pass, err := e.passes.FindByID(ctx, passID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load pass %s: %w", passID.Hex(), err)
	}
	return pass, nil
}

// clock returns now in UTC at the millisecond precision MongoDB stores.
func (e *PassEngine) clock() time.Time {
	return e.now().UTC().Truncate(time.Millisecond)
}

func markOf(pass *models.Pass) repository.ScanMark {
	return repository.ScanMark{Status: pass.Status, LastAction: pass.LastAction, LastLogAt: pass.LastLogAt}
}

// markFromHistory builds a mark from oldest-first history.
func markFromHistory(status models.PassStatus, history []models.CheckLog) repository.ScanMark {
	mark := repository.ScanMark{Status: status}
	if n := len(history); n > 0 {
		at := history[n-1].CreatedAt
		mark.LastAction = history[n-1].Action
		mark.LastLogAt = &at
	}
	return mark
}

func sameMark(a, b repository.ScanMark) bool {
	if a.Status != b.Status {
		return false
	}
	if a.LastLogAt == nil || b.LastLogAt == nil {
		return a.LastLogAt == nil && b.LastLogAt == nil
	}
	return a.LastAction == b.LastAction && a.LastLogAt.Equal(*b.LastLogAt)
}

func scannable(status models.PassStatus) bool {
	return status == models.PassStatusActive || status == models.PassStatusCheckedOut
}

func passLockKey(id primitive.ObjectID) string {
	return "pass:" + id.Hex()
}
