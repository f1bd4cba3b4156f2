package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/okian/eventsoft/internal/domain/model"
	"github.com/okian/eventsoft/pkg/logger"
)

// GormStore is a Store over a relational database.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
	log logger.Logger
}

// NewGormStore wraps an open gorm handle, sizes its pool and migrates the
// schema unless disabled.
func NewGormStore(ctx context.Context, db *gorm.DB, opts ...Option) (*GormStore, error) {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "resolve sql db handle")
	}
	sqlDB.SetMaxOpenConns(s.maxOpenConns)
	sqlDB.SetMaxIdleConns(s.maxIdleConns)
	sqlDB.SetConnMaxLifetime(s.connMaxLifetime)

	store := &GormStore{db: db, now: s.now, log: s.log}
	if s.autoMigrate {
		if err := db.WithContext(ctx).AutoMigrate(allRows()...); err != nil {
			return nil, pkgerrors.Wrap(err, "auto migrate")
		}
		store.log.Info(ctx, "schema migrated", logger.String("dialect", db.Name()))
	}
	return store, nil
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// fail maps driver errors to sentinels; anything else is logged and wrapped.
func (s *GormStore) fail(ctx context.Context, op string, err error) error {
	var r rejected
	if errors.As(err, &r) {
		return r.err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return pkgerrors.Wrap(ErrNotFound, op)
	case isUniqueViolation(err):
		return pkgerrors.Wrap(ErrDuplicate, op)
	case isSentinel(err):
		return err
	}
	s.log.Error(ctx, "repository operation failed", logger.String("op", op), logger.Error(err))
	return pkgerrors.Wrapf(err, "%s", op)
}

func isSentinel(err error) bool {
	for _, target := range []error{
		ErrNotFound, ErrDuplicate, ErrLeaderExists, ErrCapacityExhausted, ErrInvalidStatus, ErrInvalidMember,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func lockForUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (s *GormStore) CreateEvent(ctx context.Context, e *model.Event) error {
	row := eventRow{
		Name:              e.Name,
		Multidisciplinary: e.Multidisciplinary,
		Capacity:          e.Capacity,
		CreatedAt:         s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return s.fail(ctx, "create event", err)
	}
	e.ID = row.ID
	e.CreatedAt = row.CreatedAt
	return nil
}

func (s *GormStore) GetEvent(ctx context.Context, id int64) (model.Event, error) {
	var row eventRow
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return model.Event{}, s.fail(ctx, "get event", err)
	}
	return row.toModel(), nil
}

func (s *GormStore) EnrollEvaluator(ctx context.Context, e model.EvaluatorEnrollment) error {
	if !e.Status.Valid() {
		return pkgerrors.Wrapf(ErrInvalidStatus, "%q", e.Status)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&eventRow{}, e.EventID).Error; err != nil {
			return err
		}
		return tx.Create(&enrollmentRow{
			EvaluatorID: e.EvaluatorID,
			EventID:     e.EventID,
			Status:      string(e.Status),
			CategoryID:  e.CategoryID,
		}).Error
	})
	if err != nil {
		return s.fail(ctx, "enroll evaluator", err)
	}
	return nil
}

func (s *GormStore) GetEnrollment(ctx context.Context, eventID, evaluatorID int64) (model.EvaluatorEnrollment, error) {
	var row enrollmentRow
	err := s.db.WithContext(ctx).
		Where("event_id = ? AND evaluator_id = ?", eventID, evaluatorID).
		First(&row).Error
	if err != nil {
		return model.EvaluatorEnrollment{}, s.fail(ctx, "get enrollment", err)
	}
	return row.toModel(), nil
}

func (s *GormStore) SetEnrollmentStatus(ctx context.Context, eventID, evaluatorID int64, status model.Status) error {
	if !status.Valid() {
		return pkgerrors.Wrapf(ErrInvalidStatus, "%q", status)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row enrollmentRow
		if err := lockForUpdate(tx).
			Where("event_id = ? AND evaluator_id = ?", eventID, evaluatorID).
			First(&row).Error; err != nil {
			return err
		}
		return tx.Model(&row).Update("status", string(status)).Error
	})
	if err != nil {
		return s.fail(ctx, "set enrollment status", err)
	}
	return nil
}

func (s *GormStore) RegisterParticipation(ctx context.Context, p *model.Participation) error {
	if !p.Status.Valid() {
		return pkgerrors.Wrapf(ErrInvalidStatus, "%q", p.Status)
	}
	row := participationRow{
		ParticipantID: p.ParticipantID,
		EventID:       p.EventID,
		Status:        string(p.Status),
		RegisteredAt:  s.now().UTC(),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&eventRow{}, p.EventID).Error; err != nil {
			return err
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return saveCategories(tx, model.SubjectParticipant, row.ID, p.Categories)
	})
	if err != nil {
		return s.fail(ctx, "register participation", err)
	}
	p.ID = row.ID
	p.RegisteredAt = row.RegisteredAt
	p.ProjectID, p.Leader, p.Score = nil, false, nil
	return nil
}

func (s *GormStore) SetParticipationStatus(ctx context.Context, id int64, status model.Status) error {
	if !status.Valid() {
		return pkgerrors.Wrapf(ErrInvalidStatus, "%q", status)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row participationRow
		if err := lockForUpdate(tx).First(&row, id).Error; err != nil {
			return err
		}
		if status == model.StatusApproved && row.Status != string(model.StatusApproved) {
			if err := consumeCapacity(tx, row.EventID); err != nil {
				return err
			}
		}
		return tx.Model(&row).Update("status", string(status)).Error
	})
	if err != nil {
		return s.fail(ctx, "set participation status", err)
	}
	return nil
}

// consumeCapacity decrements a limited event capacity in one conditional
// statement. Events without capacity are unlimited.
func consumeCapacity(tx *gorm.DB, eventID int64) error {
	res := tx.Model(&eventRow{}).
		Where("id = ? AND capacity IS NOT NULL AND capacity > 0", eventID).
		UpdateColumn("capacity", gorm.Expr("capacity - 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var event eventRow
	if err := tx.First(&event, eventID).Error; err != nil {
		return err
	}
	if event.Capacity == nil {
		return nil
	}
	return pkgerrors.Wrapf(ErrCapacityExhausted, "event %d", eventID)
}

func (s *GormStore) CreateProject(ctx context.Context, p *model.Project) error {
	if !p.Status.Valid() {
		return pkgerrors.Wrapf(ErrInvalidStatus, "%q", p.Status)
	}
	row := projectRow{
		EventID:     p.EventID,
		Name:        p.Name,
		Description: p.Description,
		Status:      string(p.Status),
		CreatedAt:   s.now().UTC(),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&eventRow{}, p.EventID).Error; err != nil {
			return err
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return saveCategories(tx, model.SubjectProject, row.ID, p.Categories)
	})
	if err != nil {
		return s.fail(ctx, "create project", err)
	}
	p.ID = row.ID
	p.CreatedAt = row.CreatedAt
	p.Score = nil
	return nil
}

func (s *GormStore) SetProjectStatus(ctx context.Context, id int64, status model.Status) error {
	if !status.Valid() {
		return pkgerrors.Wrapf(ErrInvalidStatus, "%q", status)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row projectRow
		if err := lockForUpdate(tx).First(&row, id).Error; err != nil {
			return err
		}
		return tx.Model(&row).Update("status", string(status)).Error
	})
	if err != nil {
		return s.fail(ctx, "set project status", err)
	}
	return nil
}

func (s *GormStore) AssignMember(ctx context.Context, projectID, participationID int64, leader bool) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project projectRow
		if err := lockForUpdate(tx).First(&project, projectID).Error; err != nil {
			return err
		}
		var member participationRow
		if err := lockForUpdate(tx).First(&member, participationID).Error; err != nil {
			return err
		}
		if member.EventID != project.EventID {
			return pkgerrors.Wrapf(ErrInvalidMember, "participation %d is not in event %d", participationID, project.EventID)
		}
		if member.ProjectID != nil && *member.ProjectID != projectID {
			return pkgerrors.Wrapf(ErrInvalidMember, "participation %d already in project %d", participationID, *member.ProjectID)
		}
		if leader {
			var leaders int64
			if err := tx.Model(&participationRow{}).
				Where("project_id = ? AND leader = ? AND id <> ?", projectID, true, participationID).
				Count(&leaders).Error; err != nil {
				return err
			}
			if leaders > 0 {
				return pkgerrors.Wrapf(ErrLeaderExists, "project %d", projectID)
			}
		}
		return tx.Model(&member).Updates(map[string]any{
			"project_id": projectID,
			"leader":     leader,
		}).Error
	})
	if err != nil {
		return s.fail(ctx, "assign member", err)
	}
	return nil
}

func (s *GormStore) DeleteProject(ctx context.Context, id int64) error {
	var removed int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&projectRow{}, id).Error; err != nil {
			return err
		}
		var members []int64
		if err := tx.Model(&participationRow{}).Where("project_id = ?", id).Pluck("id", &members).Error; err != nil {
			return err
		}
		removed = len(members)
		if len(members) > 0 {
			if err := tx.Where("participation_id IN ?", members).Delete(&ratingRow{}).Error; err != nil {
				return err
			}
			if err := tx.Where("subject_kind = ? AND subject_id IN ?", string(model.SubjectParticipant), members).
				Delete(&subjectCategoryRow{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", members).Delete(&participationRow{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("project_id = ?", id).Delete(&projectRatingRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("subject_kind = ? AND subject_id = ?", string(model.SubjectProject), id).
			Delete(&subjectCategoryRow{}).Error; err != nil {
			return err
		}
		return tx.Delete(&projectRow{}, id).Error
	})
	if err != nil {
		return s.fail(ctx, "delete project", err)
	}
	s.log.Debug(ctx, "project deleted", logger.Int64("project_id", id), logger.Int("members_removed", removed))
	return nil
}

func (s *GormStore) GetParticipation(ctx context.Context, id int64) (model.Participation, error) {
	db := s.db.WithContext(ctx)
	var row participationRow
	if err := db.First(&row, id).Error; err != nil {
		return model.Participation{}, s.fail(ctx, "get participation", err)
	}
	cats, err := loadCategories(db, model.SubjectParticipant, []int64{row.ID})
	if err != nil {
		return model.Participation{}, s.fail(ctx, "get participation categories", err)
	}
	return row.toModel(cats[row.ID]), nil
}

func (s *GormStore) GetProject(ctx context.Context, id int64) (model.Project, error) {
	db := s.db.WithContext(ctx)
	var row projectRow
	if err := db.First(&row, id).Error; err != nil {
		return model.Project{}, s.fail(ctx, "get project", err)
	}
	cats, err := loadCategories(db, model.SubjectProject, []int64{row.ID})
	if err != nil {
		return model.Project{}, s.fail(ctx, "get project categories", err)
	}
	return row.toModel(cats[row.ID]), nil
}

func (s *GormStore) ListParticipations(ctx context.Context, eventID int64) ([]model.Participation, error) {
	return s.listParticipations(ctx, "list participations", "event_id = ?", eventID)
}

func (s *GormStore) ListProjectMembers(ctx context.Context, projectID int64) ([]model.Participation, error) {
	if err := s.db.WithContext(ctx).First(&projectRow{}, projectID).Error; err != nil {
		return nil, s.fail(ctx, "list project members", err)
	}
	return s.listParticipations(ctx, "list project members", "project_id = ?", projectID)
}

func (s *GormStore) listParticipations(ctx context.Context, op, where string, arg int64) ([]model.Participation, error) {
	db := s.db.WithContext(ctx)
	var rows []participationRow
	if err := db.Where(where, arg).Order("registered_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, s.fail(ctx, op, err)
	}
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	cats, err := loadCategories(db, model.SubjectParticipant, ids)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	out := make([]model.Participation, len(rows))
	for i, r := range rows {
		out[i] = r.toModel(cats[r.ID])
	}
	return out, nil
}

func (s *GormStore) ListProjects(ctx context.Context, eventID int64) ([]model.Project, error) {
	db := s.db.WithContext(ctx)
	var rows []projectRow
	if err := db.Where("event_id = ?", eventID).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, s.fail(ctx, "list projects", err)
	}
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	cats, err := loadCategories(db, model.SubjectProject, ids)
	if err != nil {
		return nil, s.fail(ctx, "list projects", err)
	}
	out := make([]model.Project, len(rows))
	for i, r := range rows {
		out[i] = r.toModel(cats[r.ID])
	}
	return out, nil
}

func saveCategories(tx *gorm.DB, kind model.SubjectKind, subjectID int64, categories []int64) error {
	if len(categories) == 0 {
		return nil
	}
	rows := make([]subjectCategoryRow, 0, len(categories))
	seen := make(map[int64]struct{}, len(categories))
	for _, c := range categories {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		rows = append(rows, subjectCategoryRow{SubjectKind: string(kind), SubjectID: subjectID, CategoryID: c})
	}
	return tx.Create(&rows).Error
}

func loadCategories(db *gorm.DB, kind model.SubjectKind, ids []int64) (map[int64][]int64, error) {
	out := make(map[int64][]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []subjectCategoryRow
	if err := db.Where("subject_kind = ? AND subject_id IN ?", string(kind), ids).
		Order("subject_id ASC, category_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.SubjectID] = append(out[r.SubjectID], r.CategoryID)
	}
	return out, nil
}

func (s *GormStore) CreateCriterion(ctx context.Context, c *model.Criterion, check WeightCheck) error {
	row := criterionRow{EventID: c.EventID, Description: c.Description, Weight: &c.Weight}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := lockedEventCriteria(tx, c.EventID)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(existing); err != nil {
				return rejected{err: err}
			}
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return s.fail(ctx, "create criterion", err)
	}
	c.ID = row.ID
	return nil
}

func (s *GormStore) UpdateCriterion(ctx context.Context, c model.Criterion, check WeightCheck) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current criterionRow
		if err := tx.First(&current, c.ID).Error; err != nil {
			return err
		}
		existing, err := lockedEventCriteria(tx, current.EventID)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(existing); err != nil {
				return rejected{err: err}
			}
		}
		weight := c.Weight
		return tx.Model(&current).Updates(map[string]any{
			"description": c.Description,
			"weight":      &weight,
		}).Error
	})
	if err != nil {
		return s.fail(ctx, "update criterion", err)
	}
	return nil
}

// rejected carries a WeightCheck failure out of a transaction unchanged.
type rejected struct{ err error }

func (r rejected) Error() string { return r.err.Error() }

// lockedEventCriteria locks the event row and returns its criteria.
func lockedEventCriteria(tx *gorm.DB, eventID int64) ([]model.Criterion, error) {
	if err := lockForUpdate(tx).First(&eventRow{}, eventID).Error; err != nil {
		return nil, err
	}
	var rows []criterionRow
	if err := tx.Where("event_id = ?", eventID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.Criterion, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func (s *GormStore) DeleteCriterion(ctx context.Context, id int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row criterionRow
		if err := tx.First(&row, id).Error; err != nil {
			return err
		}
		if err := tx.Where("criterion_id = ?", id).Delete(&ratingRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("criterion_id = ?", id).Delete(&projectRatingRow{}).Error; err != nil {
			return err
		}
		return tx.Delete(&row).Error
	})
	if err != nil {
		return s.fail(ctx, "delete criterion", err)
	}
	return nil
}

func (s *GormStore) GetCriterion(ctx context.Context, id int64) (model.Criterion, error) {
	var row criterionRow
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return model.Criterion{}, s.fail(ctx, "get criterion", err)
	}
	return row.toModel(), nil
}

func (s *GormStore) ListCriteria(ctx context.Context, eventID int64) ([]model.Criterion, error) {
	var rows []criterionRow
	if err := s.db.WithContext(ctx).Where("event_id = ?", eventID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, s.fail(ctx, "list criteria", err)
	}
	out := make([]model.Criterion, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

var ratingUpdateColumns = clause.AssignmentColumns([]string{"value", "note", "updated_at"})

func (s *GormStore) UpsertRatings(ctx context.Context, ratings []model.Rating) (int, error) {
	if len(ratings) == 0 {
		return 0, nil
	}
	now := s.now().UTC()
	var individual []ratingRow
	var group []projectRatingRow
	criteria := make(map[int64]struct{})
	participations := make(map[int64]struct{})
	projects := make(map[int64]struct{})
	for _, r := range ratings {
		criteria[r.CriterionID] = struct{}{}
		switch r.Subject.Kind {
		case model.SubjectParticipant:
			participations[r.Subject.ID] = struct{}{}
			individual = append(individual, ratingRow{
				EvaluatorID: r.EvaluatorID, CriterionID: r.CriterionID, ParticipationID: r.Subject.ID,
				Value: r.Value, Note: r.Note, UpdatedAt: now,
			})
		case model.SubjectProject:
			projects[r.Subject.ID] = struct{}{}
			group = append(group, projectRatingRow{
				EvaluatorID: r.EvaluatorID, CriterionID: r.CriterionID, ProjectID: r.Subject.ID,
				Value: r.Value, Note: r.Note, UpdatedAt: now,
			})
		default:
			return 0, pkgerrors.Wrapf(ErrNotFound, "subject kind %q", r.Subject.Kind)
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireAll(tx, &criterionRow{}, criteria, "criterion"); err != nil {
			return err
		}
		if err := requireAll(tx, &participationRow{}, participations, "participation"); err != nil {
			return err
		}
		if err := requireAll(tx, &projectRow{}, projects, "project"); err != nil {
			return err
		}
		if len(individual) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "evaluator_id"}, {Name: "criterion_id"}, {Name: "participation_id"}},
				DoUpdates: ratingUpdateColumns,
			}).Create(&individual).Error; err != nil {
				return err
			}
		}
		if len(group) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "evaluator_id"}, {Name: "criterion_id"}, {Name: "project_id"}},
				DoUpdates: ratingUpdateColumns,
			}).Create(&group).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, s.fail(ctx, "upsert ratings", err)
	}
	return len(ratings), nil
}

// requireAll fails with ErrNotFound unless every id exists in model's table.
func requireAll(tx *gorm.DB, row any, ids map[int64]struct{}, what string) error {
	if len(ids) == 0 {
		return nil
	}
	list := make([]int64, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}
	var found int64
	if err := tx.Model(row).Where("id IN ?", list).Count(&found).Error; err != nil {
		return err
	}
	if found != int64(len(list)) {
		return pkgerrors.Wrapf(ErrNotFound, "%s", what)
	}
	return nil
}

func (s *GormStore) ListRatings(ctx context.Context, subject model.SubjectRef, eventID int64) ([]model.Rating, error) {
	db := s.db.WithContext(ctx)
	switch subject.Kind {
	case model.SubjectParticipant:
		var rows []ratingRow
		err := db.Model(&ratingRow{}).
			Select("ratings.*").
			Joins("JOIN criteria ON criteria.id = ratings.criterion_id").
			Where("ratings.participation_id = ? AND criteria.event_id = ?", subject.ID, eventID).
			Order("ratings.evaluator_id ASC, ratings.criterion_id ASC").
			Find(&rows).Error
		if err != nil {
			return nil, s.fail(ctx, "list ratings", err)
		}
		out := make([]model.Rating, len(rows))
		for i, r := range rows {
			out[i] = model.Rating{
				EvaluatorID: r.EvaluatorID, CriterionID: r.CriterionID, Subject: subject,
				Value: r.Value, Note: r.Note, UpdatedAt: r.UpdatedAt,
			}
		}
		return out, nil
	case model.SubjectProject:
		var rows []projectRatingRow
		err := db.Model(&projectRatingRow{}).
			Select("project_ratings.*").
			Joins("JOIN criteria ON criteria.id = project_ratings.criterion_id").
			Where("project_ratings.project_id = ? AND criteria.event_id = ?", subject.ID, eventID).
			Order("project_ratings.evaluator_id ASC, project_ratings.criterion_id ASC").
			Find(&rows).Error
		if err != nil {
			return nil, s.fail(ctx, "list project ratings", err)
		}
		out := make([]model.Rating, len(rows))
		for i, r := range rows {
			out[i] = model.Rating{
				EvaluatorID: r.EvaluatorID, CriterionID: r.CriterionID, Subject: subject,
				Value: r.Value, Note: r.Note, UpdatedAt: r.UpdatedAt,
			}
		}
		return out, nil
	default:
		return nil, pkgerrors.Wrapf(ErrNotFound, "subject kind %q", subject.Kind)
	}
}

func (s *GormStore) SaveParticipationScore(ctx context.Context, id int64, score float64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row participationRow
		if err := lockForUpdate(tx).First(&row, id).Error; err != nil {
			return err
		}
		return tx.Model(&row).Update("score", score).Error
	})
	if err != nil {
		return s.fail(ctx, "save participation score", err)
	}
	return nil
}

func (s *GormStore) SaveProjectScore(ctx context.Context, projectID int64, score float64) (int, error) {
	var members int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project projectRow
		if err := lockForUpdate(tx).First(&project, projectID).Error; err != nil {
			return err
		}
		if err := tx.Model(&project).Update("score", score).Error; err != nil {
			return err
		}
		scope := tx.Model(&participationRow{}).Where("project_id = ? AND event_id = ?", projectID, project.EventID)
		if err := scope.Count(&members).Error; err != nil {
			return err
		}
		if members == 0 {
			return nil
		}
		return tx.Model(&participationRow{}).
			Where("project_id = ? AND event_id = ?", projectID, project.EventID).
			Update("score", score).Error
	})
	if err != nil {
		return 0, s.fail(ctx, "save project score", err)
	}
	return int(members), nil
}
