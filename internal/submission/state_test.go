package submission

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/achados/internal/imaging"
	"github.com/erazemk/achados/internal/model"
)

func bytesReader(b []byte) io.Reader { return bytes.NewReader(b) }

func validContact() Contact {
	return Contact{Name: "Ana", Phone: "61 99999-0000", Email: "ana@unb.br"}
}

func validDetails() Details {
	return Details{
		Type:        model.ItemTypeLost,
		Description: "Perdida no RU",
		Category:    "Documentos",
		Subcategory: "Carteira",
		Color:       "Marrom",
		Campus:      "Asa Norte",
		Building:    "Restaurante Universitário",
	}
}

// onDetails returns a session on the Details step with valid input.
func onDetails(t *testing.T) State {
	t.Helper()
	s, err := New(0).SetContact(validContact())
	require.NoError(t, err)
	s, err = s.Next()
	require.NoError(t, err)
	s, err = s.SetDetails(validDetails())
	require.NoError(t, err)
	return s
}

func TestNew(t *testing.T) {
	s := New(7)
	assert.Equal(t, StepContact, s.Step)
	assert.NotEmpty(t, s.Token)
	assert.Equal(t, int64(7), s.OwnerID)
	assert.NotEqual(t, s.Token, New(7).Token)
}

func TestNext_RequiresContact(t *testing.T) {
	tests := []struct {
		name    string
		contact Contact
		fields  []string
	}{
		{"empty", Contact{}, []string{"name", "phone", "email"}},
		{"bad email", Contact{Name: "Ana", Phone: "1", Email: "ana.unb.br"}, []string{"email"}},
		{"blank name", Contact{Name: "  ", Phone: "1", Email: "a@b"}, []string{"name"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(0).SetContact(tt.contact)
			require.NoError(t, err)

			next, err := s.Next()
			require.ErrorIs(t, err, model.ErrValidation)
			assert.Equal(t, StepContact, next.Step)

			var ve *model.ValidationError
			require.ErrorAs(t, err, &ve)
			var got []string
			for _, fe := range ve.Errors {
				got = append(got, fe.Field)
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}

func TestNextAndBack_PreserveDraft(t *testing.T) {
	s := onDetails(t)
	assert.Equal(t, StepDetails, s.Step)

	back, err := s.Back()
	require.NoError(t, err)
	assert.Equal(t, StepContact, back.Step)
	assert.Equal(t, validContact(), back.Draft.Contact)
	assert.Equal(t, validDetails(), back.Draft.Details)

	again, err := back.Next()
	require.NoError(t, err)
	assert.Equal(t, validDetails(), again.Draft.Details)
	assert.Equal(t, s.Token, again.Token)
}

func TestTransitions_NoSkipping(t *testing.T) {
	contact := New(0)

	_, err := contact.Back()
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
	_, err = contact.SetDetails(validDetails())
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
	_, err = contact.AttachPhoto(Photo{Filename: "a.png", Data: []byte{1}})
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	details := onDetails(t)
	_, err = details.Next()
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
	_, err = details.SetContact(validContact())
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	results := State{Step: StepResults, Token: "t"}
	_, err = results.Back()
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
	_, err = results.Next()
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestTransitions_DoNotMutateReceiver(t *testing.T) {
	s := onDetails(t)
	before := s

	_, err := s.SetDetails(Details{Description: "outra"})
	require.NoError(t, err)
	_, err = s.Back()
	require.NoError(t, err)

	assert.Equal(t, before, s)
}

func TestRestart(t *testing.T) {
	s := onDetails(t)
	s.OwnerID = 3

	r := s.Restart()
	assert.Equal(t, StepContact, r.Step)
	assert.Equal(t, Draft{}, r.Draft)
	assert.NotEqual(t, s.Token, r.Token)
	assert.Equal(t, int64(3), r.OwnerID)
}

func TestAttachPhoto(t *testing.T) {
	s := onDetails(t)

	withPhoto, err := s.AttachPhoto(Photo{Filename: "foto.JPG", Data: []byte{1, 2, 3}})
	require.NoError(t, err)
	require.NotNil(t, withPhoto.Draft.Photo)
	assert.Equal(t, 3, withPhoto.Draft.Photo.Size)
	assert.Nil(t, s.Draft.Photo)

	// Details edits keep the photo.
	edited, err := withPhoto.SetDetails(validDetails())
	require.NoError(t, err)
	assert.NotNil(t, edited.Draft.Photo)

	detached, err := edited.DetachPhoto()
	require.NoError(t, err)
	assert.Nil(t, detached.Draft.Photo)

	tests := []struct {
		name  string
		photo Photo
	}{
		{"gif", Photo{Filename: "a.gif", Data: []byte{1}}},
		{"no extension", Photo{Filename: "foto", Data: []byte{1}}},
		{"empty", Photo{Filename: "a.png"}},
		{"too large", Photo{Filename: "a.png", Data: make([]byte, imaging.MaxUploadBytes+1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AttachPhoto(tt.photo)
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}
}

func TestDetailsValidate(t *testing.T) {
	d := validDetails()
	assert.NoError(t, d.Validate())

	d.Description = ""
	d.Type = ""
	var ve *model.ValidationError
	require.ErrorAs(t, d.Validate(), &ve)
	assert.Len(t, ve.Errors, 2)
}

func TestItemTitle(t *testing.T) {
	d := validDetails()
	assert.Equal(t, "Carteira Marrom", d.ItemTitle())
	d.Title = "  Carteira de couro "
	assert.Equal(t, "Carteira de couro", d.ItemTitle())
}

func TestStepText(t *testing.T) {
	b, err := StepDetails.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "details", string(b))
	assert.Equal(t, "step(9)", Step(9).String())
}
