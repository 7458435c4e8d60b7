package hospital

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// DeletePatientMessage removes a patient together with appointments,
// prescriptions and generated prescription files
type DeletePatientMessage struct {
	Actor      ActorRef
	ID         string
	OnResponse func(*DeletePatientResponse) `json:"-"`
}

func (e DeletePatientMessage) Type() string { return "account.patient.delete" }

type DeletePatientResponse struct {
	AccountID            string
	AppointmentsDeleted  int64
	PrescriptionsDeleted int64
	FilesRemoved         int
	// FileErrors maps a PDF path to the removal failure, cleanup is best effort
	FileErrors map[string]string
}

type DeletePatientHandler struct {
	deps HandlerDeps
}

func NewDeletePatientHandler(deps HandlerDeps) *DeletePatientHandler {
	return &DeletePatientHandler{deps: deps.withDefaults()}
}

func (h *DeletePatientHandler) Execute(ctx context.Context, event DeletePatientMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during patient delete",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *DeletePatientHandler) execute(ctx context.Context, event DeletePatientMessage) error {
	if !event.Actor.IsStaff() {
		return ErrForbidden
	}

	id, err := ParseAccountID(event.ID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	resp := &DeletePatientResponse{
		AccountID:  id.String(),
		FileErrors: map[string]string{},
	}

	var files []string
	err = h.deps.Repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		patient, err := h.deps.Repo.Accounts().FindByIDTx(ctx, tx, id)
		if err != nil {
			if IsNotFound(err) {
				return ErrPatientNotFound
			}
			return err
		}

		if patient.Role != RolePatient {
			return ErrNotPatientRecord
		}

		prescriptions, err := h.deps.Repo.Prescriptions().ListByPatientTx(ctx, tx, id)
		if err != nil {
			return err
		}

		for _, rx := range prescriptions {
			if rx.PDFPath != "" {
				files = append(files, rx.PDFPath)
			}
		}

		if resp.AppointmentsDeleted, err = h.deps.Repo.Appointments().DeleteByPatientTx(ctx, tx, id); err != nil {
			return err
		}

		if resp.PrescriptionsDeleted, err = h.deps.Repo.Prescriptions().DeleteByPatientTx(ctx, tx, id); err != nil {
			return err
		}

		return h.deps.Repo.Accounts().RemoveTx(ctx, tx, id)
	})

	if err != nil {
		return richError(err, "patient delete transaction failed")
	}

	h.removeFiles(files, resp)

	recordActivity(ctx, h.deps.Activity, h.deps.Logger, ActivityEvent{
		EventType: ActivityEventPatientDeleted,
		Actor:     event.Actor,
		AccountID: resp.AccountID,
		Metadata: map[string]any{
			"appointments":  resp.AppointmentsDeleted,
			"prescriptions": resp.PrescriptionsDeleted,
			"files":         resp.FilesRemoved,
		},
		OccurredAt: h.deps.Now(),
	})

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

// removeFiles runs after the records are gone, failures are logged and skipped
func (h *DeletePatientHandler) removeFiles(paths []string, resp *DeletePatientResponse) {
	for _, path := range paths {
		if !h.deps.Files.Exists(path) {
			continue
		}
		if err := h.deps.Files.Remove(path); err != nil {
			h.deps.Logger.Error("failed to delete prescription file", "path", path, "error", err)
			resp.FileErrors[path] = err.Error()
			continue
		}
		resp.FilesRemoved++
	}
}
