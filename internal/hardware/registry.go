package hardware

import (
	"fmt"
	"sort"
	"sync"
)

// MaxNameLength bounds capability names.
const MaxNameLength = 64

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry binds capability names (port labels from the robot config) to
// driver implementations.
//
// All public methods are thread-safe.
type Registry struct {
	mu      sync.RWMutex
	device  Device
	motors  map[string]Motor
	servos  map[string]Servo
	sensors map[string]LightSensor
	logger  Logger
}

// NewRegistry creates a registry for the given drive base.
func NewRegistry(device Device) *Registry {
	return &Registry{
		device:  device,
		motors:  make(map[string]Motor),
		servos:  make(map[string]Servo),
		sensors: make(map[string]LightSensor),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Device returns the drive base.
func (r *Registry) Device() Device {
	return r.device
}

// RegisterMotor binds a motor under name.
func (r *Registry) RegisterMotor(name string, m Motor) error {
	return register(r, r.motors, "motor", name, m)
}

// RegisterServo binds a servo under name.
func (r *Registry) RegisterServo(name string, s Servo) error {
	return register(r, r.servos, "servo", name, s)
}

// RegisterSensor binds a light sensor under name.
func (r *Registry) RegisterSensor(name string, s LightSensor) error {
	return register(r, r.sensors, "sensor", name, s)
}

// Motor looks up a motor. Returns ErrCapabilityNotFound if none is bound.
func (r *Registry) Motor(name string) (Motor, error) {
	return lookup(r, r.motors, "motor", name)
}

// Servo looks up a servo. Returns ErrCapabilityNotFound if none is bound.
func (r *Registry) Servo(name string) (Servo, error) {
	return lookup(r, r.servos, "servo", name)
}

// Sensor looks up a light sensor. Returns ErrCapabilityNotFound if none is bound.
func (r *Registry) Sensor(name string) (LightSensor, error) {
	return lookup(r, r.sensors, "sensor", name)
}

// Servos returns every bound servo, sorted by name.
func (r *Registry) Servos() []Servo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := sortedKeys(r.servos)
	out := make([]Servo, 0, len(names))
	for _, n := range names {
		out = append(out, r.servos[n])
	}
	return out
}

// Names lists bound capabilities by kind ("motor", "servo", "sensor").
func (r *Registry) Names() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return map[string][]string{
		"motor":  sortedKeys(r.motors),
		"servo":  sortedKeys(r.servos),
		"sensor": sortedKeys(r.sensors),
	}
}

func register[T any](r *Registry, m map[string]T, kind, name string, v T) error {
	if name == "" || len(name) > MaxNameLength {
		return fmt.Errorf("%w: %s name %q", ErrInvalidName, kind, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := m[name]; ok {
		return fmt.Errorf("%w: %s %q", ErrCapabilityExists, kind, name)
	}
	m[name] = v
	r.logger.Debug("capability registered", "kind", kind, "name", name)
	return nil
}

func lookup[T any](r *Registry, m map[string]T, kind, name string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := m[name]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s %q", ErrCapabilityNotFound, kind, name)
	}
	return v, nil
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
