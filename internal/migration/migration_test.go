package migration

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    Version
		wantErr bool
	}{
		{in: "1.4.0", want: Version{1, 4, 0}},
		{in: "v1.4.40", want: Version{1, 4, 40}},
		{in: "V1Dot4Dot40", want: Version{1, 4, 40}},
		{in: " 2.0.10 ", want: Version{2, 0, 10}},
		{in: "1.4", wantErr: true},
		{in: "1.4.x", wantErr: true},
		{in: "", wantErr: true},
		{in: "1.-1.0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVersion(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidVersion)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVersionCompare(t *testing.T) {
	assert.Equal(t, -1, Version{1, 4, 9}.Compare(Version{1, 4, 10}))
	assert.Equal(t, 1, Version{1, 10, 0}.Compare(Version{1, 9, 99}))
	assert.Equal(t, 0, Version{1, 4, 0}.Compare(Version{1, 4, 0}))
	assert.Equal(t, "V1Dot4Dot10", Version{1, 4, 10}.UnitName())
	assert.Equal(t, "1.4.10", Version{1, 4, 10}.String())
}

// recorder registers units that log their direction and version
type recorder struct {
	calls []string
}

func (r *recorder) factory(name string) Factory {
	return func() Unit {
		return UnitFuncs{
			UpFunc: func(context.Context, DB) error {
				r.calls = append(r.calls, "up "+name)
				return nil
			},
			DownFunc: func(context.Context, DB) error {
				r.calls = append(r.calls, "down "+name)
				return nil
			},
		}
	}
}

func newTestRegistry(t *testing.T, rec *recorder) *Registry {
	t.Helper()
	reg := NewRegistry()
	for _, v := range []string{"1.4.10", "1.4.2", "1.4.9", "1.5.0"} {
		require.NoError(t, reg.Register("Atro", v, rec.factory(v)))
	}
	return reg
}

func TestRegistry(t *testing.T) {
	reg := newTestRegistry(t, &recorder{})

	versions := reg.Versions("Atro")
	require.Len(t, versions, 4)
	assert.Equal(t, []Version{{1, 4, 2}, {1, 4, 9}, {1, 4, 10}, {1, 5, 0}}, versions)

	_, ok := reg.Lookup("Atro", Version{1, 4, 9})
	assert.True(t, ok)
	_, ok = reg.Lookup("Atro", Version{1, 4, 3})
	assert.False(t, ok)
	assert.Empty(t, reg.Versions("Pim"))

	err := reg.Register("Atro", "V1Dot4Dot9", func() Unit { return UnitFuncs{} })
	assert.ErrorIs(t, err, ErrDuplicateUnit)
	assert.ErrorIs(t, reg.Register("Atro", "bogus", func() Unit { return UnitFuncs{} }), ErrInvalidVersion)
	assert.Error(t, reg.Register("Atro", "2.0.0", nil))
}

func TestRunUp(t *testing.T) {
	rec := &recorder{}
	runner := NewRunner(newTestRegistry(t, rec), nil, zaptest.NewLogger(t))

	ran, err := runner.Run(context.Background(), "Atro", "1.4.2", "1.5.0")
	require.NoError(t, err)
	assert.True(t, ran)
	// from is exclusive, to is inclusive
	assert.Equal(t, []string{"up 1.4.9", "up 1.4.10", "up 1.5.0"}, rec.calls)
}

// fakeDB only identifies itself; units under test never query it
type fakeDB struct{ DB }

func TestRunPassesDatabase(t *testing.T) {
	reg := NewRegistry()
	var got DB
	require.NoError(t, reg.Register("Atro", "1.0.0", func() Unit {
		return UnitFuncs{UpFunc: func(_ context.Context, db DB) error {
			got = db
			return nil
		}}
	}))

	want := &fakeDB{}
	ran, err := NewRunner(reg, want, nil).Run(context.Background(), "Atro", "0.9.0", "1.0.0")
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Same(t, want, got)
}

func TestRunDown(t *testing.T) {
	rec := &recorder{}
	runner := NewRunner(newTestRegistry(t, rec), nil, nil)

	ran, err := runner.Run(context.Background(), "Atro", "v1.5.0", "V1Dot4Dot2")
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, []string{"down 1.5.0", "down 1.4.10", "down 1.4.9"}, rec.calls)
}

func TestRunBetweenUnregisteredVersions(t *testing.T) {
	rec := &recorder{}
	runner := NewRunner(newTestRegistry(t, rec), nil, nil)

	ran, err := runner.Run(context.Background(), "Atro", "1.4.0", "1.4.5")
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, []string{"up 1.4.2"}, rec.calls)
}

func TestRunNoop(t *testing.T) {
	rec := &recorder{}
	runner := NewRunner(newTestRegistry(t, rec), nil, nil)

	ran, err := runner.Run(context.Background(), "Atro", "1.4.9", "1.4.9")
	require.NoError(t, err)
	assert.False(t, ran)

	ran, err = runner.Run(context.Background(), "Pim", "1.0.0", "2.0.0")
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Empty(t, rec.calls)
}

func TestRunErrors(t *testing.T) {
	rec := &recorder{}
	reg := newTestRegistry(t, rec)
	boom := errors.New("boom")
	require.NoError(t, reg.Register("Atro", "1.4.5", func() Unit {
		return UnitFuncs{UpFunc: func(context.Context, DB) error { return boom }}
	}))
	runner := NewRunner(reg, nil, nil)

	ran, err := runner.Run(context.Background(), "Atro", "1.4.0", "1.5.0")
	assert.False(t, ran)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "V1Dot4Dot5")
	// units after the failure are not run
	assert.Equal(t, []string{"up 1.4.2"}, rec.calls)

	_, err = runner.Run(context.Background(), "Atro", "latest", "1.5.0")
	assert.ErrorIs(t, err, ErrInvalidVersion)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = runner.Run(ctx, "Atro", "1.4.0", "1.5.0")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultRegister(t *testing.T) {
	Register("TestDefaultRegister", "1.0.0", func() Unit { return UnitFuncs{} })
	assert.Len(t, Default.Versions("TestDefaultRegister"), 1)
	assert.Panics(t, func() {
		Register("TestDefaultRegister", "1.0.0", func() Unit { return UnitFuncs{} })
	})
}
