// Package engine runs adaptive practice sessions. It serves questions,
// scores answers and keeps one knowledge estimate per (user, objective)
// pair. Work on a pair is serialized; different pairs proceed in parallel.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/masterypath/internal/bank"
	"github.com/abhisek/masterypath/internal/bkt"
	"github.com/abhisek/masterypath/internal/cache"
	"github.com/abhisek/masterypath/internal/knowledge"
	"github.com/abhisek/masterypath/internal/mastery"
	"github.com/abhisek/masterypath/internal/selector"
	"github.com/abhisek/masterypath/internal/store"
)

// DefaultStorageTimeout bounds each storage call.
const DefaultStorageTimeout = 2 * time.Second

// DefaultProgressTTL is how long a cached progress projection lives.
const DefaultProgressTTL = 5 * time.Minute

// Config controls the behavior of the Engine. Zero fields take defaults.
type Config struct {
	Prior          float64
	Threshold      float64
	StorageTimeout time.Duration
	ProgressTTL    time.Duration

	Model    bkt.Model
	Selector selector.Selector
	Cache    cache.Cache
	Logger   *slog.Logger

	Now   func() time.Time
	NewID func() string
}

// DefaultConfig returns the standard engine configuration.
func DefaultConfig() Config {
	return Config{
		Prior:          knowledge.DefaultPrior,
		Threshold:      bank.DefaultThreshold,
		StorageTimeout: DefaultStorageTimeout,
		ProgressTTL:    DefaultProgressTTL,
	}
}

// Feedback is the outcome of one submitted answer.
type Feedback struct {
	IsCorrect    bool
	Knowledge    float64
	Accuracy     float64
	Attempts     int
	Mastered     bool
	EverMastered bool
	Transition   *mastery.StateTransition
}

// Engine is safe for concurrent use.
type Engine struct {
	bank      bank.Bank
	repo      store.KnowledgeRepo
	evaluator *mastery.Evaluator
	locks     *lockArena
	cfg       Config
	log       *slog.Logger
}

// New creates an Engine over the given bank and repository.
func New(b bank.Bank, repo store.KnowledgeRepo, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.Prior <= 0 || cfg.Prior >= 1 {
		cfg.Prior = def.Prior
	}
	if cfg.Threshold <= 0 || cfg.Threshold > 1 {
		cfg.Threshold = def.Threshold
	}
	if cfg.StorageTimeout <= 0 {
		cfg.StorageTimeout = def.StorageTimeout
	}
	if cfg.ProgressTTL <= 0 {
		cfg.ProgressTTL = def.ProgressTTL
	}
	if cfg.Model == nil {
		cfg.Model = bkt.New(bkt.DefaultParams(), nil)
	}
	if cfg.Selector == nil {
		cfg.Selector = selector.New()
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.Nop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}

	return &Engine{
		bank:      b,
		repo:      repo,
		evaluator: mastery.NewEvaluator(cfg.Threshold),
		locks:     newLockArena(),
		cfg:       cfg,
		log:       cfg.Logger.With("component", "engine"),
	}
}

// NextQuestion selects and records the next question for the pair.
func (e *Engine) NextQuestion(ctx context.Context, userID, objectiveID string) (bank.PublicQuestion, error) {
	obj, err := e.objective(ctx, objectiveID)
	if err != nil {
		return bank.PublicQuestion{}, err
	}
	key := knowledge.Key{UserID: userID, ObjectiveID: obj.ID}

	release, err := e.lock(ctx, key)
	if err != nil {
		return bank.PublicQuestion{}, err
	}
	defer release()

	if err := e.checkUnlocked(ctx, userID, obj); err != nil {
		return bank.PublicQuestion{}, err
	}

	questions, err := e.questions(ctx, obj.ID)
	if err != nil {
		return bank.PublicQuestion{}, err
	}
	if len(questions) == 0 {
		return bank.PublicQuestion{}, newError(KindNoQuestionsAvailable, nil, "objective %q has no questions", obj.ID)
	}

	state, err := e.load(ctx, key)
	if err != nil {
		return bank.PublicQuestion{}, err
	}
	now := e.cfg.Now()
	if state == nil {
		state = knowledge.NewState(key, e.cfg.Prior, now)
	}

	difficulties, err := e.difficulties(ctx, questions)
	if err != nil {
		return bank.PublicQuestion{}, err
	}
	candidates := make([]selector.Candidate, len(questions))
	for i, q := range questions {
		candidates[i] = selector.Candidate{Question: q, Difficulty: difficulties[q.ID]}
	}

	q, err := e.cfg.Selector.Select(candidates, selector.Input{
		LastQuestionID: state.LastQuestionID,
		Knowledge:      state.CurrentKnowledge,
		Served:         state.Served,
	})
	if err != nil {
		return bank.PublicQuestion{}, newError(KindNoQuestionsAvailable, err, "select question for %q", obj.ID)
	}

	expected := state.Version
	next := state.Clone()
	tr := mastery.Begin(next)
	next.MarkServed(q.ID)
	next.Version = expected + 1
	next.UpdatedAt = now

	if err := e.commit(ctx, expected, next, nil); err != nil {
		return bank.PublicQuestion{}, err
	}

	if tr != nil {
		e.logTransition(tr)
		e.invalidate(ctx, userID, obj)
	}
	e.log.Debug("question served",
		"user", userID,
		"objective", obj.ID,
		"question", q.ID,
		"difficulty", difficulties[q.ID],
		"knowledge", state.CurrentKnowledge,
	)
	return q.Public(), nil
}

// SubmitAnswer scores optionID against the question last served to the pair
// and commits the updated knowledge together with its history record.
func (e *Engine) SubmitAnswer(ctx context.Context, userID, objectiveID, questionID, optionID string) (Feedback, error) {
	obj, err := e.objective(ctx, objectiveID)
	if err != nil {
		return Feedback{}, err
	}
	key := knowledge.Key{UserID: userID, ObjectiveID: obj.ID}

	release, err := e.lock(ctx, key)
	if err != nil {
		return Feedback{}, err
	}
	defer release()

	state, err := e.load(ctx, key)
	if err != nil {
		return Feedback{}, err
	}
	switch {
	case state == nil:
		return Feedback{}, newError(KindStaleQuestion, nil, "no question has been served for %q", obj.ID)
	case !state.AwaitingAnswer:
		return Feedback{}, newError(KindStaleQuestion, nil, "question %q was already answered", questionID)
	case state.LastQuestionID != questionID:
		return Feedback{}, newError(KindStaleQuestion, nil, "question %q is not the current question", questionID)
	}

	questions, err := e.questions(ctx, obj.ID)
	if err != nil {
		return Feedback{}, err
	}
	q, ok := findQuestion(questions, questionID)
	if !ok {
		return Feedback{}, newError(KindStaleQuestion, nil, "question %q is no longer in the catalog", questionID)
	}
	opt, ok := q.Option(optionID)
	if !ok {
		return Feedback{}, newError(KindInvalidOption, nil, "option %q does not belong to question %q", optionID, questionID)
	}

	difficulties, err := e.difficulties(ctx, []bank.Question{q})
	if err != nil {
		return Feedback{}, err
	}
	difficulty := difficulties[q.ID]

	now := e.cfg.Now()
	expected := state.Version
	next := state.Clone()
	posterior := e.cfg.Model.Update(state.CurrentKnowledge, opt.IsCorrect, difficulty)
	next.ApplyAnswer(opt.IsCorrect, posterior)
	res := e.evaluator.Evaluate(next, obj.MasteryThreshold(e.cfg.Threshold), now)
	next.Version = expected + 1
	next.UpdatedAt = now

	rec := &knowledge.AnswerRecord{
		ID:             e.cfg.NewID(),
		UserID:         userID,
		ObjectiveID:    obj.ID,
		Seq:            next.Attempts,
		AnsweredAt:     now,
		QuestionID:     q.ID,
		OptionID:       opt.ID,
		Correct:        opt.IsCorrect,
		KnowledgeAfter: posterior,
		Difficulty:     difficulty,
	}
	if err := e.commit(ctx, expected, next, rec); err != nil {
		return Feedback{}, err
	}

	e.invalidate(ctx, userID, obj)
	if res.Transition != nil {
		e.logTransition(res.Transition)
	}
	e.log.Debug("answer recorded",
		"user", userID,
		"objective", obj.ID,
		"question", q.ID,
		"correct", opt.IsCorrect,
		"knowledge", posterior,
		"attempts", next.Attempts,
	)

	return Feedback{
		IsCorrect:    opt.IsCorrect,
		Knowledge:    posterior,
		Accuracy:     next.Accuracy(),
		Attempts:     next.Attempts,
		Mastered:     res.Mastered,
		EverMastered: next.EverMastered,
		Transition:   res.Transition,
	}, nil
}

// History returns the pair's answers, oldest first.
func (e *Engine) History(ctx context.Context, userID, objectiveID string) ([]knowledge.AnswerRecord, error) {
	obj, err := e.objective(ctx, objectiveID)
	if err != nil {
		return nil, err
	}
	key := knowledge.Key{UserID: userID, ObjectiveID: obj.ID}
	return call(ctx, e, "load history", func(ctx context.Context) ([]knowledge.AnswerRecord, error) {
		return e.repo.History(ctx, key, store.QueryOpts{})
	})
}

// State returns the pair's committed state, or a fresh unseen state when
// nothing has been recorded yet.
func (e *Engine) State(ctx context.Context, userID, objectiveID string) (*knowledge.State, error) {
	obj, err := e.objective(ctx, objectiveID)
	if err != nil {
		return nil, err
	}
	key := knowledge.Key{UserID: userID, ObjectiveID: obj.ID}
	s, err := e.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if s == nil {
		s = knowledge.NewState(key, e.cfg.Prior, e.cfg.Now())
	}
	return s, nil
}

// Progress projects the user's standing across a section. Results are
// cached until the next answer in that section.
func (e *Engine) Progress(ctx context.Context, userID, sectionID string) ([]mastery.ObjectiveProgress, error) {
	section, err := call(ctx, e, "load section", func(ctx context.Context) (bank.Section, error) {
		return e.bank.Section(ctx, sectionID)
	})
	if err != nil {
		if errors.Is(err, bank.ErrNotFound) {
			return nil, newError(KindUnknownSection, err, "unknown section %q", sectionID)
		}
		return nil, err
	}

	// The generation is read before the states, so a commit racing this
	// projection bumps it and the entry written below is never read.
	genKey := cache.GenerationKey(userID, section.ID)
	gen, genErr := cache.Generation(ctx, e.cfg.Cache, genKey)
	if genErr != nil {
		e.log.Warn("progress cache generation read failed", "key", genKey, "error", genErr)
	}
	cacheKey := cache.ProgressKey(userID, section.ID, gen)
	if genErr == nil {
		if b, err := e.cfg.Cache.Get(ctx, cacheKey); err == nil {
			var cached []mastery.ObjectiveProgress
			if err := json.Unmarshal(b, &cached); err == nil {
				return cached, nil
			}
			e.log.Warn("discarding undecodable progress cache entry", "key", cacheKey)
		} else if !errors.Is(err, cache.ErrMiss) {
			e.log.Warn("progress cache read failed", "key", cacheKey, "error", err)
		}
	}

	objectives := make([]bank.Objective, 0, len(section.ObjectiveIDs))
	for _, id := range section.ObjectiveIDs {
		o, err := e.objective(ctx, id)
		if err != nil {
			return nil, err
		}
		objectives = append(objectives, o)
	}

	states, err := call(ctx, e, "list states", func(ctx context.Context) ([]*knowledge.State, error) {
		return e.repo.ListByUser(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	byObjective := make(map[string]*knowledge.State, len(states))
	for _, s := range states {
		byObjective[s.ObjectiveID] = s
	}

	out := mastery.Project(objectives, byObjective, e.cfg.Prior)

	if b, err := json.Marshal(out); err == nil && genErr == nil {
		if err := e.cfg.Cache.Set(ctx, cacheKey, b, e.cfg.ProgressTTL); err != nil {
			e.log.Warn("progress cache write failed", "key", cacheKey, "error", err)
		}
	}
	return out, nil
}

// objective resolves id against the bank.
func (e *Engine) objective(ctx context.Context, id string) (bank.Objective, error) {
	obj, err := call(ctx, e, "load objective", func(ctx context.Context) (bank.Objective, error) {
		return e.bank.Objective(ctx, id)
	})
	if err != nil {
		if errors.Is(err, bank.ErrNotFound) {
			return bank.Objective{}, newError(KindUnknownObjective, err, "unknown objective %q", id)
		}
		return bank.Objective{}, err
	}
	return obj, nil
}

func (e *Engine) questions(ctx context.Context, objectiveID string) ([]bank.Question, error) {
	qs, err := call(ctx, e, "list questions", func(ctx context.Context) ([]bank.Question, error) {
		return e.bank.ListQuestions(ctx, objectiveID)
	})
	if errors.Is(err, bank.ErrNotFound) {
		return nil, newError(KindUnknownObjective, err, "unknown objective %q", objectiveID)
	}
	return qs, err
}

// checkUnlocked enforces the section order: an objective opens once its
// predecessor has ever been mastered.
func (e *Engine) checkUnlocked(ctx context.Context, userID string, obj bank.Objective) error {
	if obj.SectionID == "" {
		return nil
	}
	section, err := call(ctx, e, "load section", func(ctx context.Context) (bank.Section, error) {
		return e.bank.Section(ctx, obj.SectionID)
	})
	if err != nil {
		if errors.Is(err, bank.ErrNotFound) {
			return newError(KindUnknownSection, err, "objective %q references unknown section %q", obj.ID, obj.SectionID)
		}
		return err
	}
	prev, ok := mastery.Predecessor(section, obj.ID)
	if !ok {
		return nil
	}
	// EverMastered never reverts, so reading it without the predecessor's
	// lock cannot observe a value that is later withdrawn.
	prevState, err := e.load(ctx, knowledge.Key{UserID: userID, ObjectiveID: prev})
	if err != nil {
		return err
	}
	everMastered := map[string]bool{prev: prevState != nil && prevState.EverMastered}
	if !mastery.IsUnlocked(section, obj.ID, everMastered) {
		return newError(KindObjectiveLocked, nil, "objective %q is locked until %q is mastered", obj.ID, prev)
	}
	return nil
}

// difficulties returns the effective difficulty of each question, filling
// unauthored ones from aggregate answer statistics.
func (e *Engine) difficulties(ctx context.Context, questions []bank.Question) (map[string]float64, error) {
	var missing []string
	for _, q := range questions {
		if q.Difficulty == nil {
			missing = append(missing, q.ID)
		}
	}

	stats := map[string]bank.Stats{}
	if len(missing) > 0 {
		var err error
		stats, err = call(ctx, e, "load question stats", func(ctx context.Context) (map[string]bank.Stats, error) {
			return e.repo.QuestionStats(ctx, missing)
		})
		if err != nil {
			return nil, err
		}
	}

	out := make(map[string]float64, len(questions))
	for _, q := range questions {
		out[q.ID] = bank.EffectiveDifficulty(q, stats[q.ID])
	}
	return out, nil
}

func (e *Engine) load(ctx context.Context, key knowledge.Key) (*knowledge.State, error) {
	return call(ctx, e, "load knowledge state", func(ctx context.Context) (*knowledge.State, error) {
		return e.repo.Get(ctx, key)
	})
}

// commit writes next, mapping a lost race to StaleQuestion.
func (e *Engine) commit(ctx context.Context, expected int64, next *knowledge.State, rec *knowledge.AnswerRecord) error {
	_, err := call(ctx, e, "save knowledge state", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, e.repo.CompareAndSwap(ctx, expected, next, rec)
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrVersionConflict) {
		return newError(KindStaleQuestion, err, "state of %s changed concurrently", next.Key)
	}
	return err
}

// lock waits for the pair's lock for at most the storage timeout.
func (e *Engine) lock(ctx context.Context, key knowledge.Key) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.StorageTimeout)
	defer cancel()
	release, err := e.locks.acquire(ctx, key)
	if err != nil {
		return nil, newError(KindStorageUnavailable, err, "wait for %s", key)
	}
	return release, nil
}

// invalidate bumps the progress generation of the section containing obj.
// The counter outlives every projection cached under it, so it cannot
// expire back to a generation whose entry is still live.
func (e *Engine) invalidate(ctx context.Context, userID string, obj bank.Objective) {
	if obj.SectionID == "" {
		return
	}
	key := cache.GenerationKey(userID, obj.SectionID)
	if _, err := e.cfg.Cache.Incr(context.WithoutCancel(ctx), key, 2*e.cfg.ProgressTTL); err != nil {
		e.log.Warn("progress cache invalidation failed", "key", key, "error", err)
	}
}

func (e *Engine) logTransition(tr *mastery.StateTransition) {
	e.log.Info("objective state changed",
		"user", tr.UserID,
		"objective", tr.ObjectiveID,
		"from", tr.From,
		"to", tr.To,
		"trigger", tr.Trigger,
	)
}

// call runs fn under the storage timeout. Version conflicts and not-found
// errors pass through for the caller to classify; everything else becomes
// StorageUnavailable.
func call[T any](ctx context.Context, e *Engine, op string, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.StorageTimeout)
	defer cancel()

	v, err := fn(ctx)
	if err == nil {
		return v, nil
	}
	var zero T
	if errors.Is(err, store.ErrVersionConflict) || errors.Is(err, bank.ErrNotFound) {
		return zero, err
	}
	return zero, newError(KindStorageUnavailable, err, "%s", op)
}

func findQuestion(qs []bank.Question, id string) (bank.Question, bool) {
	for _, q := range qs {
		if q.ID == id {
			return q, true
		}
	}
	return bank.Question{}, false
}
