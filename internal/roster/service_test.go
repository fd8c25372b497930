package roster

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"internportal/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := store.Open("sqlite", filepath.Join(t.TempDir(), "portal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db.Client))
	return NewService(NewRepository(db.Client))
}

func TestCreateDerivesStudentIDAndDefaults(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id, err := svc.Create(ctx, CreateInput{Name: "Asha", RollNumber: "R1", Password: "pw"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	students, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "STU-R1", students[0].StudentID)
	assert.Equal(t, "General", students[0].Department)
	assert.Equal(t, "active", students[0].Status)
}

func TestCreateRejectsDuplicateRoll(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Name: "Asha", RollNumber: "R1", Password: "pw"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateInput{Name: "Other", RollNumber: "R1", Password: "pw2"})
	assert.ErrorIs(t, err, ErrDuplicateRoll)

	students, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, students, 1)
}

func TestCreateKeepsExplicitStudentID(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Name: "Ben", RollNumber: "R2", Password: "pw", StudentID: "CUSTOM-7"})
	require.NoError(t, err)

	students, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "CUSTOM-7", students[0].StudentID)
}

func TestDeleteIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id, err := svc.Create(ctx, CreateInput{Name: "Asha", RollNumber: "R1", Password: "pw"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, id))
	require.NoError(t, svc.Delete(ctx, id))
	require.NoError(t, svc.Delete(ctx, "no-such-id"))

	students, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, students)
}

func TestImportCSV(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	csvData := "Name,RollNumber,Password,Department\n" +
		"Asha,R1,pw1,CS\n" +
		"Ben,R2,pw2,\n"

	count, err := svc.ImportCSV(ctx, strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	students, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "STU-R1", students[0].StudentID)
	assert.Equal(t, "CS", students[0].Department)
	assert.Equal(t, "General", students[1].Department)
}

func TestImportCSVIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	csvData := "Name,RollNumber,Password\nAsha,R1,pw1\nBen,R2,pw2\n"

	count, err := svc.ImportCSV(ctx, strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = svc.ImportCSV(ctx, strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	students, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, students, 2)
}

func TestImportCSVRejectsMissingColumns(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.ImportCSV(ctx, strings.NewReader("Name,Password\nAsha,pw1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RollNumber")
}

func TestImportCSVAbortsOnMalformedRow(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// Second row has the wrong field count; nothing may be committed.
	csvData := "Name,RollNumber,Password\nAsha,R1,pw1\nBen,R2\n"
	_, err := svc.ImportCSV(ctx, strings.NewReader(csvData))
	require.Error(t, err)

	students, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, students)
}

func TestAuthenticateByEitherIdentifier(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Name: "Asha", RollNumber: "R1", Password: "pw"})
	require.NoError(t, err)

	byStudentID, err := svc.Authenticate(ctx, "STU-R1", "pw")
	require.NoError(t, err)
	byRoll, err := svc.Authenticate(ctx, "R1", "pw")
	require.NoError(t, err)
	assert.Equal(t, byStudentID, byRoll)

	_, err = svc.Authenticate(ctx, "R1", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "R9", "pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
