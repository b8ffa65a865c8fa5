// Package submission implements the three-step report form: contact
// details, object details, then results. States are immutable values;
// transitions return a new State and leave the receiver untouched.
package submission

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/erazemk/achados/internal/imaging"
	"github.com/erazemk/achados/internal/model"
)

// Step is a position in the form.
type Step int

const (
	StepContact Step = iota
	StepDetails
	StepResults
)

func (s Step) String() string {
	switch s {
	case StepContact:
		return "contact"
	case StepDetails:
		return "details"
	case StepResults:
		return "results"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Contact is collected on the first step.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Details is collected on the second step.
type Details struct {
	Type        model.ItemType `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Subcategory string         `json:"subcategory"`
	Color       string         `json:"color"`
	Campus      string         `json:"campus"`
	Building    string         `json:"building"`
}

// Photo is an attached file that has not been uploaded yet.
type Photo struct {
	Filename string `json:"filename"`
	Size     int    `json:"size"`
	Data     []byte `json:"-"`
}

// Draft is everything entered so far.
type Draft struct {
	Contact Contact `json:"contact"`
	Details Details `json:"details"`
	Photo   *Photo  `json:"photo,omitempty"`
}

// Failure kinds recorded on a State after a blocking submit error.
const (
	FailurePhotoUpload = "photo_upload_failed"
	FailureItemCreate  = "item_create_failed"
)

// State is one snapshot of a submission session.
type State struct {
	Step  Step  `json:"step"`
	Draft Draft `json:"draft"`
	// Token identifies the session and doubles as the create idempotency key.
	Token   string `json:"token"`
	OwnerID int64  `json:"-"`
	// Failure is set when the last submit attempt failed and cleared by the
	// next transition.
	Failure string      `json:"failure,omitempty"`
	Item    *model.Item `json:"item,omitempty"`
}

// New returns an empty session on the Contact step.
func New(ownerID int64) State {
	return State{Step: StepContact, Token: uuid.NewString(), OwnerID: ownerID}
}

func invalid(from Step, action string) error {
	return fmt.Errorf("%w: cannot %s on %s step", model.ErrInvalidTransition, action, from)
}

// SetContact replaces the contact fields. Only valid on the Contact step.
func (s State) SetContact(c Contact) (State, error) {
	if s.Step != StepContact {
		return s, invalid(s.Step, "set contact")
	}
	s.Draft.Contact = c
	s.Failure = ""
	return s, nil
}

// SetDetails replaces the object details, keeping any attached photo.
// Only valid on the Details step.
func (s State) SetDetails(d Details) (State, error) {
	if s.Step != StepDetails {
		return s, invalid(s.Step, "set details")
	}
	s.Draft.Details = d
	s.Failure = ""
	return s, nil
}

// AttachPhoto sets the photo to upload on submit.
func (s State) AttachPhoto(p Photo) (State, error) {
	if s.Step != StepDetails {
		return s, invalid(s.Step, "attach photo")
	}
	if err := validatePhoto(p); err != nil {
		return s, err
	}
	p.Size = len(p.Data)
	s.Draft.Photo = &p
	s.Failure = ""
	return s, nil
}

// DetachPhoto removes the attached photo, if any.
func (s State) DetachPhoto() (State, error) {
	if s.Step != StepDetails {
		return s, invalid(s.Step, "detach photo")
	}
	s.Draft.Photo = nil
	return s, nil
}

// Next advances from Contact to Details once the contact fields are valid.
// Leaving Details happens through Workflow.Submit.
func (s State) Next() (State, error) {
	if s.Step != StepContact {
		return s, invalid(s.Step, "advance")
	}
	if err := s.Draft.Contact.Validate(); err != nil {
		return s, err
	}
	s.Step = StepDetails
	s.Failure = ""
	return s, nil
}

// Back returns from Details to Contact keeping the draft.
func (s State) Back() (State, error) {
	if s.Step != StepDetails {
		return s, invalid(s.Step, "go back")
	}
	s.Step = StepContact
	s.Failure = ""
	return s, nil
}

// Restart discards the draft and starts over with a fresh token.
func (s State) Restart() State {
	return New(s.OwnerID)
}

// Validate checks the contact fields.
func (c Contact) Validate() error {
	var errs []model.FieldError
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, model.FieldError{Field: "name", Message: "required"})
	}
	if strings.TrimSpace(c.Phone) == "" {
		errs = append(errs, model.FieldError{Field: "phone", Message: "required"})
	}
	switch email := strings.TrimSpace(c.Email); {
	case email == "":
		errs = append(errs, model.FieldError{Field: "email", Message: "required"})
	case !strings.Contains(email, "@"):
		errs = append(errs, model.FieldError{Field: "email", Message: "must be an email address"})
	}
	if len(errs) > 0 {
		return &model.ValidationError{Errors: errs}
	}
	return nil
}

// Validate checks the object details.
func (d Details) Validate() error {
	var errs []model.FieldError
	if !d.Type.IsValid() {
		errs = append(errs, model.FieldError{Field: "type", Message: "must be LOST or FOUND"})
	}
	for _, f := range []struct{ name, value string }{
		{"category", d.Category},
		{"subcategory", d.Subcategory},
		{"color", d.Color},
		{"description", d.Description},
	} {
		if strings.TrimSpace(f.value) == "" {
			errs = append(errs, model.FieldError{Field: f.name, Message: "required"})
		}
	}
	if len(errs) > 0 {
		return &model.ValidationError{Errors: errs}
	}
	return nil
}

// ItemTitle is the explicit title, or "<subcategory> <color>" when empty.
func (d Details) ItemTitle() string {
	if t := strings.TrimSpace(d.Title); t != "" {
		return t
	}
	return strings.TrimSpace(strings.TrimSpace(d.Subcategory) + " " + strings.TrimSpace(d.Color))
}

func validatePhoto(p Photo) error {
	if len(p.Data) == 0 {
		return model.NewValidationError("photo", "empty file")
	}
	if len(p.Data) > imaging.MaxUploadBytes {
		return model.NewValidationError("photo", imaging.ErrTooLarge.Error())
	}
	if path.Ext(p.Filename) == "" {
		return model.NewValidationError("photo", "file name needs an extension")
	}
	if err := imaging.CheckFilename(p.Filename); err != nil {
		return model.NewValidationError("photo", err.Error())
	}
	return nil
}

// newItem builds the record created on submit.
func (s State) newItem() model.NewItem {
	d, c := s.Draft.Details, s.Draft.Contact
	return model.NewItem{
		OwnerID:        s.OwnerID,
		Type:           d.Type,
		Title:          d.ItemTitle(),
		Description:    strings.TrimSpace(d.Description),
		Category:       strings.TrimSpace(d.Category),
		Subcategory:    strings.TrimSpace(d.Subcategory),
		Color:          strings.TrimSpace(d.Color),
		Campus:         strings.TrimSpace(d.Campus),
		Building:       strings.TrimSpace(d.Building),
		ContactName:    strings.TrimSpace(c.Name),
		ContactPhone:   strings.TrimSpace(c.Phone),
		ContactEmail:   strings.TrimSpace(c.Email),
		IdempotencyKey: s.Token,
	}
}
