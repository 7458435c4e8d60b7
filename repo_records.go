package hospital

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Appointments stores patient appointments
type Appointments interface {
	repository.Repository[*Appointment]
	ListByPatientTx(ctx context.Context, tx bun.IDB, patientID uuid.UUID) ([]*Appointment, error)
	DeleteByPatientTx(ctx context.Context, tx bun.IDB, patientID uuid.UUID) (int64, error)
}

// Prescriptions stores prescriptions and their generated PDF paths
type Prescriptions interface {
	repository.Repository[*Prescription]
	ListByPatientTx(ctx context.Context, tx bun.IDB, patientID uuid.UUID) ([]*Prescription, error)
	DeleteByPatientTx(ctx context.Context, tx bun.IDB, patientID uuid.UUID) (int64, error)
}

type appointments struct {
	repository.Repository[*Appointment]
}

type prescriptions struct {
	repository.Repository[*Prescription]
}

func NewAppointmentsRepository(db *bun.DB) Appointments {
	handlers := repository.ModelHandlers[*Appointment]{
		NewRecord: func() *Appointment {
			return &Appointment{}
		},
		GetID: func(record *Appointment) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *Appointment, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return "id"
		},
	}
	return &appointments{Repository: repository.NewRepository(db, handlers)}
}

func NewPrescriptionsRepository(db *bun.DB) Prescriptions {
	handlers := repository.ModelHandlers[*Prescription]{
		NewRecord: func() *Prescription {
			return &Prescription{}
		},
		GetID: func(record *Prescription) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *Prescription, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return "id"
		},
	}
	return &prescriptions{Repository: repository.NewRepository(db, handlers)}
}

func (r *appointments) ListByPatientTx(ctx context.Context, tx bun.IDB, patientID uuid.UUID) ([]*Appointment, error) {
	records := []*Appointment{}
	err := tx.NewSelect().
		Model(&records).
		Where("?TableAlias.patient_id = ?", patientID).
		Scan(ctx)
	return records, err
}

func (r *appointments) DeleteByPatientTx(ctx context.Context, tx bun.IDB, patientID uuid.UUID) (int64, error) {
	res, err := tx.NewDelete().
		Model((*Appointment)(nil)).
		Where("patient_id = ?", patientID).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *prescriptions) ListByPatientTx(ctx context.Context, tx bun.IDB, patientID uuid.UUID) ([]*Prescription, error) {
	records := []*Prescription{}
	err := tx.NewSelect().
		Model(&records).
		Where("?TableAlias.patient_id = ?", patientID).
		Scan(ctx)
	return records, err
}

func (r *prescriptions) DeleteByPatientTx(ctx context.Context, tx bun.IDB, patientID uuid.UUID) (int64, error) {
	res, err := tx.NewDelete().
		Model((*Prescription)(nil)).
		Where("patient_id = ?", patientID).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
