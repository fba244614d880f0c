package vitals

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"vitals-alert/internal/patient"
)

// Sampler produces one reading for a patient. The monitoring loop depends on
// this interface only, so tests can plug deterministic strategies.
type Sampler interface {
	ProduceReading(patientID int) patient.Reading
}

// SamplerFunc adapts a function to Sampler.
type SamplerFunc func(patientID int) patient.Reading

// ProduceReading calls f.
func (f SamplerFunc) ProduceReading(patientID int) patient.Reading {
	return f(patientID)
}

// ==================== Ranges ====================

// Range is an inclusive integer interval.
type Range struct {
	Min, Max int
}

// Category is a blood-pressure band the simulator can draw from.
type Category struct {
	Name      string
	Weight    int
	Systolic  Range
	Diastolic Range
}

// DefaultCategories mirrors the usual BP classification, weighted so that
// alerts show up in a short demo run.
var DefaultCategories = []Category{
	{Name: "normal", Weight: 70, Systolic: Range{90, 119}, Diastolic: Range{60, 79}},
	{Name: "elevated", Weight: 10, Systolic: Range{120, 129}, Diastolic: Range{60, 79}},
	{Name: "stage1", Weight: 10, Systolic: Range{130, 139}, Diastolic: Range{80, 89}},
	{Name: "stage2", Weight: 7, Systolic: Range{140, 179}, Diastolic: Range{90, 109}},
	{Name: "crisis", Weight: 3, Systolic: Range{180, 200}, Diastolic: Range{110, 120}},
}

// Normal ranges for the remaining vital signs.
var (
	HeartRateRange        = Range{60, 100}
	OxygenSaturationRange = Range{95, 100}
	RespiratoryRateRange  = Range{12, 20}
	TemperatureMin        = 36.1
	TemperatureMax        = 37.2
)

const minDiastolic = 10

// ==================== Random sampler ====================

// RandomSampler draws readings from weighted BP categories and normal ranges
// for the other signs. Safe for concurrent use.
type RandomSampler struct {
	mu          sync.Mutex
	rng         *rand.Rand
	categories  []Category
	totalWeight int
	now         func() time.Time
}

// Option configures a RandomSampler.
type Option func(*RandomSampler)

// WithSeed makes the sequence reproducible.
func WithSeed(seed int64) Option {
	return func(s *RandomSampler) { s.rng = rand.New(rand.NewSource(seed)) }
}

// WithCategories replaces the BP category table. Entries with a
// non-positive weight, or whose systolic range can reach zero, are never
// drawn.
func WithCategories(categories []Category) Option {
	return func(s *RandomSampler) { s.categories = categories }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *RandomSampler) { s.now = now }
}

// NewRandomSampler creates a sampler seeded from the clock unless WithSeed
// is given.
func NewRandomSampler(opts ...Option) *RandomSampler {
	s := &RandomSampler{
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		categories: DefaultCategories,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, c := range s.categories {
		if drawable(c) {
			s.totalWeight += c.Weight
		}
	}
	return s
}

// ProduceReading implements Sampler. Diastolic is always below systolic.
func (s *RandomSampler) ProduceReading(patientID int) patient.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()

	systolic, diastolic := s.bloodPressure()

	return patient.Reading{
		PatientID:        patientID,
		Timestamp:        s.now(),
		Systolic:         systolic,
		Diastolic:        diastolic,
		HeartRate:        s.intn(HeartRateRange),
		Temperature:      s.temperature(),
		OxygenSaturation: s.intn(OxygenSaturationRange),
		RespiratoryRate:  s.intn(RespiratoryRateRange),
	}
}

// pickCategory draws a category by weight.
func (s *RandomSampler) pickCategory() Category {
	if s.totalWeight <= 0 {
		return DefaultCategories[0]
	}
	n := s.rng.Intn(s.totalWeight)
	for _, c := range s.categories {
		if !drawable(c) {
			continue
		}
		if n < c.Weight {
			return c
		}
		n -= c.Weight
	}
	return DefaultCategories[0]
}

// drawable reports whether c can be sampled while keeping diastolic below
// systolic: EnforceOrder needs a positive systolic value.
func drawable(c Category) bool {
	return c.Weight > 0 && c.Systolic.Min > 0
}

func (s *RandomSampler) bloodPressure() (int, int) {
	c := s.pickCategory()
	systolic := s.intn(c.Systolic)
	diastolic := s.intn(c.Diastolic)
	return systolic, EnforceOrder(systolic, diastolic)
}

func (s *RandomSampler) temperature() float64 {
	v := TemperatureMin + s.rng.Float64()*(TemperatureMax-TemperatureMin)
	return math.Round(v*10) / 10
}

func (s *RandomSampler) intn(r Range) int {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + s.rng.Intn(r.Max-r.Min+1)
}

// EnforceOrder lowers diastolic in steps of 10 until it is below systolic,
// never going under 10 mmHg. If systolic itself is that low, diastolic ends
// at systolic-1. systolic must be positive; for systolic <= 0 the result is
// 0 and the ordering cannot hold.
func EnforceOrder(systolic, diastolic int) int {
	for diastolic >= systolic && diastolic > minDiastolic {
		diastolic -= 10
		if diastolic < minDiastolic {
			diastolic = minDiastolic
		}
	}
	if diastolic >= systolic {
		diastolic = systolic - 1
		if diastolic < 0 {
			diastolic = 0
		}
	}
	return diastolic
}
