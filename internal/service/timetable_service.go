package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campusops/timetable-api/internal/dto"
	"github.com/campusops/timetable-api/internal/models"
	appErrors "github.com/campusops/timetable-api/pkg/errors"
)

type timetableSectionStore interface {
	ListForTerm(ctx context.Context, semester, year int, ids []string) ([]models.SectionDetail, error)
	MarkScheduledWithTx(ctx context.Context, tx *sqlx.Tx, ids []string) error
}

type timetableClassroomStore interface {
	ListActive(ctx context.Context) ([]models.Classroom, error)
}

type timetableScheduleStore interface {
	ListActiveDetailed(ctx context.Context) ([]models.ScheduleDetail, error)
	BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, schedules []models.Schedule) error
}

type timetableTxProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type timetableResultCache interface {
	Enabled() bool
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// TimetableConfig governs generator behaviour.
type TimetableConfig struct {
	DefaultMaxIterations int
	ResultCacheTTL       time.Duration
}

// TimetableService runs the constraint-based timetable generator: it builds
// per-section candidate domains, searches for a conflict-free assignment with
// bounded backtracking and persists accepted schedules in one batch.
type TimetableService struct {
	sections   timetableSectionStore
	classrooms timetableClassroomStore
	schedules  timetableScheduleStore
	tx         timetableTxProvider
	cache      timetableResultCache
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        TimetableConfig
}

// NewTimetableService wires generator dependencies.
func NewTimetableService(
	sections timetableSectionStore,
	classrooms timetableClassroomStore,
	schedules timetableScheduleStore,
	tx timetableTxProvider,
	cache timetableResultCache,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultMaxIterations <= 0 {
		cfg.DefaultMaxIterations = 20000
	}
	if cfg.ResultCacheTTL <= 0 {
		cfg.ResultCacheTTL = 30 * time.Minute
	}
	return &TimetableService{
		sections:   sections,
		classrooms: classrooms,
		schedules:  schedules,
		tx:         tx,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
	}
}

const (
	reasonNoCandidates = "no eligible classroom/time-slot combination"
	reasonNoSlot       = "no conflict-free slot found within the search budget"
)

// Generate runs one full scheduling pass for a term and persists the accepted
// assignments as a single batch unless DryRun is set.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable generation payload")
	}

	slots, err := resolveTimeSlots(req.TimeSlots)
	if err != nil {
		return nil, err
	}

	maxIterations := s.cfg.DefaultMaxIterations
	if req.MaxIterations != nil {
		maxIterations = *req.MaxIterations
	}

	all, err := s.sections.ListForTerm(ctx, req.Semester, req.Year, req.SectionIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sections")
	}
	if len(all) == 0 {
		return &dto.GenerateTimetableResponse{
			Success:        false,
			Message:        fmt.Sprintf("no sections found for semester %d/%d", req.Semester, req.Year),
			Semester:       req.Semester,
			Year:           req.Year,
			Schedules:      []dto.GeneratedScheduleEntry{},
			FailedSections: []dto.FailedSection{},
		}, nil
	}

	// Sections already carrying a schedule are outside the search universe.
	pending := make([]models.SectionDetail, 0, len(all))
	for _, section := range all {
		if !section.Scheduled {
			pending = append(pending, section)
		}
	}
	if len(pending) == 0 {
		return &dto.GenerateTimetableResponse{
			Success:        true,
			Message:        "all sections for this term are already scheduled",
			Semester:       req.Semester,
			Year:           req.Year,
			Schedules:      []dto.GeneratedScheduleEntry{},
			FailedSections: []dto.FailedSection{},
		}, nil
	}

	rooms, err := s.classrooms.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classrooms")
	}
	if len(rooms) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no active classrooms available")
	}

	// Prefetch every persisted schedule once; the search itself never touches
	// storage again.
	existing, err := s.schedules.ListActiveDetailed(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing schedules for conflict detection")
	}

	domains := buildDomains(pending, rooms, slots)
	search := newTimetableSearch(pending, domains, buildConflictIndex(existing), maxIterations)

	start := time.Now()
	solved := search.run()
	elapsed := time.Since(start)

	committed := search.result(solved)
	resp := s.assembleResult(req, pending, domains, committed, rooms, dto.TimetableSearchStats{
		TotalIterations:     search.iterations,
		BacktrackCount:      search.backtracks,
		ElapsedMilliseconds: elapsed.Milliseconds(),
	})

	if !req.DryRun && len(committed) > 0 {
		if err := s.persist(ctx, committed); err != nil {
			return nil, err
		}
	}

	outcome := "partial"
	if resp.Success {
		outcome = "complete"
	}
	s.metrics.ObserveTimetableRun(outcome, resp.ScheduledCount, resp.Stats)
	s.logger.Info("timetable generation finished",
		zap.Int("semester", req.Semester),
		zap.Int("year", req.Year),
		zap.Int("scheduled", resp.ScheduledCount),
		zap.Int("unscheduled", resp.UnscheduledCount),
		zap.Int("iterations", search.iterations),
		zap.Int("backtracks", search.backtracks),
		zap.Duration("elapsed", elapsed),
		zap.Bool("dry_run", req.DryRun),
	)

	s.storeResult(ctx, req.Semester, req.Year, resp)
	return resp, nil
}

// LatestResult returns the cached response of the most recent run for a term.
func (s *TimetableService) LatestResult(ctx context.Context, query dto.TimetableResultQuery) (*dto.GenerateTimetableResponse, error) {
	if query.Semester < 1 || query.Semester > 2 || query.Year == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semester and year are required")
	}
	if s.cache == nil || !s.cache.Enabled() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable result cache is disabled")
	}
	var resp dto.GenerateTimetableResponse
	hit, err := s.cache.Get(ctx, resultCacheKey(query.Semester, query.Year), &resp)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read cached timetable result")
	}
	if !hit {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no cached timetable result for this term")
	}
	return &resp, nil
}

func (s *TimetableService) persist(ctx context.Context, committed map[string]candidateAssignment) error {
	if s.tx == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rows := make([]models.Schedule, 0, len(committed))
	ids := make([]string, 0, len(committed))
	for sectionID, assignment := range committed {
		rows = append(rows, models.Schedule{
			SectionID:   sectionID,
			ClassroomID: assignment.ClassroomID,
			DayOfWeek:   assignment.Day,
			StartMinute: assignment.Start,
			EndMinute:   assignment.End,
			Active:      true,
		})
		ids = append(ids, sectionID)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].SectionID < rows[j].SectionID })
	sort.Strings(ids)

	if err = s.schedules.BulkCreateWithTx(ctx, tx, rows); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist generated schedules")
		return err
	}
	if err = s.sections.MarkScheduledWithTx(ctx, tx, ids); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to flag scheduled sections")
		return err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit generated schedules")
		return err
	}
	return nil
}

func (s *TimetableService) assembleResult(
	req dto.GenerateTimetableRequest,
	pending []models.SectionDetail,
	domains map[string][]candidateAssignment,
	committed map[string]candidateAssignment,
	rooms []models.Classroom,
	stats dto.TimetableSearchStats,
) *dto.GenerateTimetableResponse {
	roomCodes := make(map[string]string, len(rooms))
	for _, room := range rooms {
		roomCodes[room.ID] = room.Code
	}
	courseCodes := make(map[string]models.SectionDetail, len(pending))
	for _, section := range pending {
		courseCodes[section.ID] = section
	}

	entries := make([]dto.GeneratedScheduleEntry, 0, len(committed))
	for sectionID, assignment := range committed {
		section := courseCodes[sectionID]
		entries = append(entries, dto.GeneratedScheduleEntry{
			SectionID:     sectionID,
			CourseCode:    section.CourseCode,
			ClassroomID:   assignment.ClassroomID,
			ClassroomCode: roomCodes[assignment.ClassroomID],
			DayOfWeek:     assignment.Day,
			DayName:       models.DayName(assignment.Day),
			StartTime:     models.FormatClock(assignment.Start),
			EndTime:       models.FormatClock(assignment.End),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].DayOfWeek != entries[j].DayOfWeek {
			return entries[i].DayOfWeek < entries[j].DayOfWeek
		}
		if entries[i].StartTime != entries[j].StartTime {
			return entries[i].StartTime < entries[j].StartTime
		}
		return entries[i].SectionID < entries[j].SectionID
	})

	failed := make([]dto.FailedSection, 0)
	for _, section := range pending {
		if _, ok := committed[section.ID]; ok {
			continue
		}
		reason := reasonNoSlot
		if len(domains[section.ID]) == 0 {
			reason = reasonNoCandidates
		}
		failed = append(failed, dto.FailedSection{
			SectionID:  section.ID,
			CourseID:   section.CourseID,
			CourseCode: section.CourseCode,
			Reason:     reason,
		})
	}

	total := len(pending)
	scheduled := len(committed)
	resp := &dto.GenerateTimetableResponse{
		Success:          len(failed) == 0,
		Semester:         req.Semester,
		Year:             req.Year,
		TotalSections:    total,
		ScheduledCount:   scheduled,
		UnscheduledCount: total - scheduled,
		Schedules:        entries,
		FailedSections:   failed,
		Stats:            stats,
	}
	if resp.Success {
		resp.Message = fmt.Sprintf("scheduled all %d sections", total)
	} else {
		resp.Message = fmt.Sprintf("scheduled %d of %d sections", scheduled, total)
	}
	return resp
}

func (s *TimetableService) storeResult(ctx context.Context, semester, year int, resp *dto.GenerateTimetableResponse) {
	if s.cache == nil || !s.cache.Enabled() {
		return
	}
	if err := s.cache.Set(ctx, resultCacheKey(semester, year), resp, s.cfg.ResultCacheTTL); err != nil {
		s.logger.Warn("failed to cache timetable result", zap.Error(err))
	}
}

func resultCacheKey(semester, year int) string {
	return fmt.Sprintf("timetable:result:%d:%d", year, semester)
}

func resolveTimeSlots(requested []dto.TimeSlotRequest) ([]models.TimeSlot, error) {
	if len(requested) == 0 {
		return models.DefaultTimeSlots(), nil
	}
	slots := make([]models.TimeSlot, 0, len(requested))
	for _, item := range requested {
		start, err := models.ParseClock(item.StartTime)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid startTime %q", item.StartTime))
		}
		end, err := models.ParseClock(item.EndTime)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid endTime %q", item.EndTime))
		}
		if start >= end {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("time slot %s-%s must start before it ends", item.StartTime, item.EndTime))
		}
		slots = append(slots, models.TimeSlot{DayOfWeek: item.DayOfWeek, StartMinute: start, EndMinute: end})
	}
	return slots, nil
}

// --- Candidate domains ---

// candidateAssignment is one (classroom, weekly slot) option for a section.
type candidateAssignment struct {
	ClassroomID string
	Day         int
	Start       int
	End         int
}

// buildDomains enumerates, per section, every classroom/slot pair whose room
// is large enough. Candidates are ordered earliest start time first, then
// earliest weekday; classroom enumeration order (capacity ascending) breaks
// remaining ties towards the tightest fitting room.
func buildDomains(sections []models.SectionDetail, rooms []models.Classroom, slots []models.TimeSlot) map[string][]candidateAssignment {
	domains := make(map[string][]candidateAssignment, len(sections))
	for _, section := range sections {
		var candidates []candidateAssignment
		for _, slot := range slots {
			for _, room := range rooms {
				if room.Capacity < section.Capacity {
					continue
				}
				candidates = append(candidates, candidateAssignment{
					ClassroomID: room.ID,
					Day:         slot.DayOfWeek,
					Start:       slot.StartMinute,
					End:         slot.EndMinute,
				})
			}
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			if candidates[i].Start != candidates[j].Start {
				return candidates[i].Start < candidates[j].Start
			}
			return candidates[i].Day < candidates[j].Day
		})
		domains[section.ID] = candidates
	}
	return domains
}

// --- Persisted-conflict index ---

// conflictIndex holds the schedules already in storage, keyed for O(rows)
// overlap probes during the search.
type conflictIndex struct {
	rooms       map[string][]models.TimeSlot
	instructors map[string][]models.TimeSlot
}

func buildConflictIndex(existing []models.ScheduleDetail) *conflictIndex {
	idx := &conflictIndex{
		rooms:       make(map[string][]models.TimeSlot),
		instructors: make(map[string][]models.TimeSlot),
	}
	for _, row := range existing {
		window := models.TimeSlot{DayOfWeek: row.DayOfWeek, StartMinute: row.StartMinute, EndMinute: row.EndMinute}
		idx.rooms[row.ClassroomID] = append(idx.rooms[row.ClassroomID], window)
		if row.InstructorID != nil {
			idx.instructors[*row.InstructorID] = append(idx.instructors[*row.InstructorID], window)
		}
	}
	return idx
}

func (idx *conflictIndex) roomBusy(classroomID string, day, start, end int) bool {
	for _, window := range idx.rooms[classroomID] {
		if window.DayOfWeek == day && models.Overlaps(start, end, window.StartMinute, window.EndMinute) {
			return true
		}
	}
	return false
}

func (idx *conflictIndex) instructorBusy(instructorID string, day, start, end int) bool {
	for _, window := range idx.instructors[instructorID] {
		if window.DayOfWeek == day && models.Overlaps(start, end, window.StartMinute, window.EndMinute) {
			return true
		}
	}
	return false
}

// --- Backtracking search ---

// timetableSearch carries the state of one generation run. The committed
// assignment map is owned exclusively by the run; domains are never shrunk,
// consistency is re-checked per candidate instead.
type timetableSearch struct {
	order         []models.SectionDetail
	sections      map[string]models.SectionDetail
	domains       map[string][]candidateAssignment
	assigned      map[string]candidateAssignment
	best          map[string]candidateAssignment
	existing      *conflictIndex
	maxIterations int
	iterations    int
	backtracks    int
	exhausted     bool
}

func newTimetableSearch(sections []models.SectionDetail, domains map[string][]candidateAssignment, existing *conflictIndex, maxIterations int) *timetableSearch {
	// Sections with an empty domain can never be placed; keep them out of
	// the variable order so the search does not starve on them.
	order := make([]models.SectionDetail, 0, len(sections))
	index := make(map[string]models.SectionDetail, len(sections))
	for _, section := range sections {
		index[section.ID] = section
		if len(domains[section.ID]) > 0 {
			order = append(order, section)
		}
	}
	return &timetableSearch{
		order:         order,
		sections:      index,
		domains:       domains,
		assigned:      make(map[string]candidateAssignment),
		best:          make(map[string]candidateAssignment),
		existing:      existing,
		maxIterations: maxIterations,
	}
}

// run drives the recursive search and reports whether every candidate
// section was assigned.
func (s *timetableSearch) run() bool {
	return s.solve()
}

// result returns the assignment map to publish: the full solution on
// success, otherwise the largest partial assignment observed before the
// search starved or ran out of budget.
func (s *timetableSearch) result(solved bool) map[string]candidateAssignment {
	if solved {
		return s.assigned
	}
	return s.best
}

func (s *timetableSearch) solve() bool {
	if s.iterations >= s.maxIterations {
		s.exhausted = true
		return false
	}
	s.iterations++

	section, ok := s.nextSection()
	if !ok {
		return true
	}

	for _, candidate := range s.domains[section.ID] {
		if !s.consistent(section, candidate) {
			continue
		}
		s.assigned[section.ID] = candidate
		s.snapshotBest()
		if s.solve() {
			return true
		}
		if s.exhausted {
			// Budget gone: stop unwinding so the partial schedule built so
			// far survives into the result.
			return false
		}
		delete(s.assigned, section.ID)
		s.backtracks++
	}
	return false
}

// nextSection applies MRV: the unassigned section with the fewest domain
// values wins. The variable order is capacity-descending, so equal domain
// sizes resolve towards the hardest-to-place, highest-impact section.
func (s *timetableSearch) nextSection() (models.SectionDetail, bool) {
	var pick models.SectionDetail
	found := false
	bestSize := 0
	for _, section := range s.order {
		if _, done := s.assigned[section.ID]; done {
			continue
		}
		size := len(s.domains[section.ID])
		if !found || size < bestSize {
			pick = section
			bestSize = size
			found = true
		}
	}
	return pick, found
}

func (s *timetableSearch) consistent(section models.SectionDetail, candidate candidateAssignment) bool {
	if s.existing.roomBusy(candidate.ClassroomID, candidate.Day, candidate.Start, candidate.End) {
		return false
	}
	if section.InstructorID != nil && s.existing.instructorBusy(*section.InstructorID, candidate.Day, candidate.Start, candidate.End) {
		return false
	}
	for otherID, other := range s.assigned {
		if otherID == section.ID {
			continue
		}
		if other.Day != candidate.Day {
			continue
		}
		if other.ClassroomID == candidate.ClassroomID && models.Overlaps(candidate.Start, candidate.End, other.Start, other.End) {
			return false
		}
		if section.InstructorID != nil {
			otherSection := s.sections[otherID]
			if otherSection.InstructorID != nil && *otherSection.InstructorID == *section.InstructorID &&
				models.Overlaps(candidate.Start, candidate.End, other.Start, other.End) {
				return false
			}
		}
	}
	return true
}

func (s *timetableSearch) snapshotBest() {
	if len(s.assigned) <= len(s.best) {
		return
	}
	snapshot := make(map[string]candidateAssignment, len(s.assigned))
	for id, assignment := range s.assigned {
		snapshot[id] = assignment
	}
	s.best = snapshot
}
