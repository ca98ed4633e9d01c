package feature

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"
)

// Flag represents a feature flag with its configuration.
type Flag struct {
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Enabled     bool            `json:"enabled" yaml:"enabled"`
	Attributes  Attributes      `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Rollout     *RolloutOptions `json:"rollout,omitempty" yaml:"rollout,omitempty"`
	Tags        []string        `json:"tags,omitempty" yaml:"tags,omitempty"`
	CreatedAt   time.Time       `json:"created_at,omitzero" yaml:"created_at,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at,omitzero" yaml:"updated_at,omitempty"`
}

// Validate checks the flag name, reserved attributes and rollout options.
func (f *Flag) Validate() error {
	if f == nil {
		return errors.Join(ErrInvalidFlag, errors.New("flag cannot be nil"))
	}
	if f.Name == "" {
		return errors.Join(ErrInvalidFlag, errors.New("flag name cannot be empty"))
	}
	if err := f.Attributes.Validate(); err != nil {
		return errors.Join(ErrInvalidFlag, fmt.Errorf("flag %q: %w", f.Name, err))
	}
	if f.Rollout != nil {
		if err := f.Rollout.Validate(); err != nil {
			return errors.Join(ErrInvalidFlag, fmt.Errorf("flag %q: %w", f.Name, err))
		}
	}
	return nil
}

// Clone returns a deep copy of the flag.
func (f *Flag) Clone() *Flag {
	if f == nil {
		return nil
	}
	out := *f
	out.Attributes = f.Attributes.Clone()
	out.Tags = slices.Clone(f.Tags)
	if f.Rollout != nil {
		r := f.Rollout.Clone()
		out.Rollout = &r
	}
	return &out
}

// RolloutOptions is the targeting surface evaluated after the reserved attributes.
type RolloutOptions struct {
	// Percentage of the bucket space that gets the feature. Nil means 100.
	Percentage         *int     `json:"percentage,omitempty" yaml:"percentage,omitempty"`
	SpecificUsers      []string `json:"specific_users,omitempty" yaml:"specific_users,omitempty"`
	SpecificUserGroups []string `json:"specific_user_groups,omitempty" yaml:"specific_user_groups,omitempty"`
	// AllowedRoles is stored for callers; evaluation does not consult it.
	AllowedRoles []string `json:"allowed_roles,omitempty" yaml:"allowed_roles,omitempty"`
}

// Percent is a helper for filling RolloutOptions.Percentage.
func Percent(p int) *int {
	return &p
}

// EffectivePercentage returns the configured percentage or 100 when unset.
func (o RolloutOptions) EffectivePercentage() int {
	if o.Percentage == nil {
		return BucketCount
	}
	return *o.Percentage
}

// Validate checks the percentage range.
func (o RolloutOptions) Validate() error {
	if p := o.EffectivePercentage(); p < 0 || p > BucketCount {
		return errors.Join(ErrInvalidRollout, fmt.Errorf("percentage %d out of range [0, %d]", p, BucketCount))
	}
	return nil
}

// Clone returns a deep copy of the options.
func (o RolloutOptions) Clone() RolloutOptions {
	out := RolloutOptions{
		SpecificUsers:      slices.Clone(o.SpecificUsers),
		SpecificUserGroups: slices.Clone(o.SpecificUserGroups),
		AllowedRoles:       slices.Clone(o.AllowedRoles),
	}
	if o.Percentage != nil {
		out.Percentage = Percent(*o.Percentage)
	}
	return out
}

// TargetsUser reports whether userID is listed in SpecificUsers.
func (o RolloutOptions) TargetsUser(userID string) bool {
	return userID != "" && slices.Contains(o.SpecificUsers, userID)
}

// TargetsGroup reports whether the user's segment or one of its groups is listed
// in SpecificUserGroups.
func (o RolloutOptions) TargetsGroup(u User) bool {
	if len(o.SpecificUserGroups) == 0 {
		return false
	}
	if u.Segment != "" && slices.Contains(o.SpecificUserGroups, u.Segment) {
		return true
	}
	return slices.ContainsFunc(u.Groups, func(g string) bool {
		return slices.Contains(o.SpecificUserGroups, g)
	})
}

// User is the context of a user-scoped evaluation.
type User struct {
	ID       string   `json:"id"`
	Email    string   `json:"email,omitempty"`
	Segment  string   `json:"segment,omitempty"`
	Internal bool     `json:"internal,omitempty"`
	Groups   []string `json:"groups,omitempty"`
}

// Provider is the interface that all feature flag providers must implement.
type Provider interface {
	// IsEnabled reports the base enabled state of a flag.
	// If the flag doesn't exist, it returns false and ErrFlagNotFound.
	IsEnabled(ctx context.Context, flagName string) (bool, error)

	// GetFlag returns the full flag configuration.
	// If the flag doesn't exist, it returns nil and ErrFlagNotFound.
	GetFlag(ctx context.Context, flagName string) (*Flag, error)

	// ListFlagNames returns the names of all flags in lexical order.
	ListFlagNames(ctx context.Context) ([]string, error)

	// ListFlags returns all available flags, optionally filtered by tags.
	ListFlags(ctx context.Context, tags ...string) ([]*Flag, error)

	// CreateFlag creates a new feature flag.
	// If a flag with the same name already exists, it returns an error.
	CreateFlag(ctx context.Context, flag *Flag) error

	// UpdateFlag updates an existing feature flag.
	// If the flag doesn't exist, it returns ErrFlagNotFound.
	UpdateFlag(ctx context.Context, flag *Flag) error

	// DeleteFlag deletes a feature flag.
	// If the flag doesn't exist, it returns ErrFlagNotFound.
	DeleteFlag(ctx context.Context, flagName string) error

	// Close releases any resources used by the provider.
	Close() error
}
