package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/dto"
	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

type officerStore interface {
	List(ctx context.Context) ([]models.Officer, error)
	LockByID(ctx context.Context, q sqlx.ExtContext, id string) (*models.Officer, error)
	SetActive(ctx context.Context, q sqlx.ExecerContext, id string, active bool) error
}

type officerReassigner interface {
	ReassignFrom(ctx context.Context, officer *models.Officer) (*dto.ReassignReport, error)
}

// OfficerService administers officer accounts.
type OfficerService struct {
	tx         txRunner
	officers   officerStore
	reassigner officerReassigner
	logger     *zap.Logger
}

// NewOfficerService constructs an OfficerService.
func NewOfficerService(tx txRunner, officers officerStore, reassigner officerReassigner, logger *zap.Logger) *OfficerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OfficerService{tx: tx, officers: officers, reassigner: reassigner, logger: logger}
}

// List returns every officer.
func (s *OfficerService) List(ctx context.Context) ([]models.Officer, error) {
	officers, err := s.officers.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list officers")
	}
	if officers == nil {
		officers = []models.Officer{}
	}
	return officers, nil
}

// SetActive toggles an officer. Reassignment runs only on the active to inactive
// edge and only after the flag is committed, so candidate queries already exclude
// the officer.
func (s *OfficerService) SetActive(ctx context.Context, officerID string, active bool) (*dto.SetOfficerActiveResponse, error) {
	if !validID(officerID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "officer not found")
	}
	var (
		officer     *models.Officer
		deactivated bool
		changed     bool
	)
	err := s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		current, err := s.officers.LockByID(ctx, tx, officerID)
		if err != nil {
			return err
		}
		officer = current
		if current.IsActive == active {
			return nil
		}
		if err := s.officers.SetActive(ctx, tx, officerID, active); err != nil {
			return err
		}
		changed = true
		deactivated = current.IsActive && !active
		officer.IsActive = active
		return nil
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "officer not found")
		}
		return nil, appErrors.Internal(err, "failed to update officer")
	}

	resp := &dto.SetOfficerActiveResponse{OfficerID: officer.ID, Active: officer.IsActive, Changed: changed}
	if !deactivated {
		return resp, nil
	}

	report, err := s.reassigner.ReassignFrom(ctx, officer)
	if err != nil {
		// The deactivation stands; open grievances stay on the stale assignment.
		s.logger.Error("reassignment after deactivation failed", zap.String("officer_id", officer.ID), zap.Error(err))
		return resp, nil
	}
	s.logger.Info("officer deactivated",
		zap.String("officer_id", officer.ID),
		zap.Int("migrated", len(report.Migrated)),
		zap.Int("unmigrated", len(report.Unmigrated)),
	)
	resp.Report = report
	return resp, nil
}
