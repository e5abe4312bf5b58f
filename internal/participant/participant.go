// Package participant manages the people taking part in the simulation and
// their assignment to characters.
package participant

import (
	"context"
	"errors"
	"fmt"

	"github.com/maestroSwift/villarbolsillo/internal/common"
	"github.com/maestroSwift/villarbolsillo/internal/model"
	"github.com/maestroSwift/villarbolsillo/internal/service"
)

// Participant errors.
var (
	ErrDuplicate       = errors.New("participant already exists")
	ErrAlreadyAssigned = errors.New("participant already has a character")
	ErrHasAccounts     = errors.New("character still has accounts")
)

// Input is the data needed to register a participant.
type Input struct {
	Name     string
	Surname1 string
	Surname2 string
	Role     model.Role
}

// Service reads and writes PERSONAS and their character links.
type Service struct {
	store service.RecordStore
}

// NewService creates a participant service over store.
func NewService(store service.RecordStore) *Service {
	return &Service{store: store}
}

func (s *Service) people() service.Table {
	return s.store.Table(service.TableParticipants)
}

func (s *Service) characters() service.Table {
	return s.store.Table(service.TableCharacters)
}

// Create validates and stores a new participant. Full names are unique.
func (s *Service) Create(ctx context.Context, in Input) (*model.Participant, error) {
	values := map[Field]string{
		FieldName:     in.Name,
		FieldSurname1: in.Surname1,
		FieldSurname2: in.Surname2,
		FieldRole:     string(in.Role),
	}
	fields := service.Fields{}
	for _, field := range Fields {
		v, err := Validate(field, values[field])
		if err != nil {
			return nil, err
		}
		if v != "" {
			fields[string(field)] = v
		}
	}

	existing, err := s.FindByFullName(ctx, in.Name, in.Surname1, in.Surname2)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicate, existing.FullName())
	}

	rec, err := s.people().Create(ctx, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to create participant: %w", err)
	}
	p := fromRecord(rec)
	common.LogInfo(ctx, "Created participant", common.Fields{"participant": p.ID, "role": string(p.Role)})
	return p, nil
}

// FindByFullName looks a participant up by name and surnames, ignoring case.
func (s *Service) FindByFullName(ctx context.Context, name, surname1, surname2 string) (*model.Participant, error) {
	want := model.FullName(Normalize(name), Normalize(surname1), Normalize(surname2))
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].FullName() == want {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("%w: participant %s", common.ErrNotFound, want)
}

// List returns every participant ordered by surnames and name.
func (s *Service) List(ctx context.Context) ([]model.Participant, error) {
	recs, err := s.people().Query(ctx, service.QueryOptions{
		Sort: []string{model.FieldSurname1, model.FieldSurname2, model.FieldName},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	out := make([]model.Participant, 0, len(recs))
	for i := range recs {
		out = append(out, *fromRecord(&recs[i]))
	}
	return out, nil
}

// Get loads one participant.
func (s *Service) Get(ctx context.Context, id string) (*model.Participant, error) {
	rec, err := s.people().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return fromRecord(rec), nil
}

// Update changes a single field after validating the new value.
func (s *Service) Update(ctx context.Context, id string, field Field, value string) (*model.Participant, error) {
	v, err := Validate(field, value)
	if err != nil {
		return nil, err
	}
	var stored any = v
	if v == "" {
		stored = nil
	}
	rec, err := s.people().Update(ctx, id, service.Fields{string(field): stored})
	if err != nil {
		return nil, fmt.Errorf("failed to update participant: %w", err)
	}
	common.LogInfo(ctx, "Updated participant", common.Fields{"participant": id, "field": string(field)})
	return fromRecord(rec), nil
}

// Delete removes a participant who never started a simulation.
func (s *Service) Delete(ctx context.Context, id string) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if p.CharacterID != "" {
		return fmt.Errorf("%w: %s", common.ErrCharacterInUse, p.CharacterID)
	}
	deleted, err := s.people().Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete participant: %w", err)
	}
	if !deleted {
		return fmt.Errorf("%w: participant %s", common.ErrNotFound, id)
	}
	common.LogInfo(ctx, "Deleted participant", common.Fields{"participant": id})
	return nil
}

// Availability is a character as offered for assignment.
type Availability struct {
	Character model.Character
	Available bool
}

// Characters lists every character by reference and whether it is free.
func (s *Service) Characters(ctx context.Context) ([]Availability, error) {
	recs, err := s.characters().Query(ctx, service.QueryOptions{Sort: []string{model.FieldReference}})
	if err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}
	out := make([]Availability, 0, len(recs))
	for i := range recs {
		c, err := characterFromRecord(&recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, Availability{Character: *c, Available: c.ParticipantID == ""})
	}
	return out, nil
}

// AvailableCharacters lists the characters nobody has taken yet.
func (s *Service) AvailableCharacters(ctx context.Context) ([]model.Character, error) {
	all, err := s.Characters(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.Character
	for _, a := range all {
		if a.Available {
			out = append(out, a.Character)
		}
	}
	return out, nil
}

// AssignCharacter links the participant to the character with the given
// reference. A participant whose character has no accounts yet may be
// reassigned with replace.
func (s *Service) AssignCharacter(ctx context.Context, participantID string, reference int, replace bool) (*model.Character, error) {
	p, err := s.Get(ctx, participantID)
	if err != nil {
		return nil, err
	}
	if p.CharacterID != "" {
		if !replace {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyAssigned, p.CharacterID)
		}
		if err := s.requireNoAccounts(ctx, p.CharacterID); err != nil {
			return nil, err
		}
	}

	recs, err := s.characters().Query(ctx, service.QueryOptions{
		Filter:     service.Fields{model.FieldReference: reference},
		MaxRecords: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find character: %w", err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: character reference %d", common.ErrNotFound, reference)
	}
	c, err := characterFromRecord(&recs[0])
	if err != nil {
		return nil, err
	}
	if c.ParticipantID != "" && c.ParticipantID != participantID {
		return nil, fmt.Errorf("%w: reference %d", common.ErrCharacterInUse, reference)
	}

	if _, err := s.people().Update(ctx, participantID, service.Fields{
		model.FieldCharacter: []string{c.ID},
	}); err != nil {
		return nil, fmt.Errorf("failed to assign character: %w", err)
	}
	c.ParticipantID = participantID
	common.LogInfo(ctx, "Assigned character", common.Fields{
		"participant": participantID,
		"character":   c.ID,
		"reference":   reference,
	})
	return c, nil
}

// UnassignCharacter frees the participant's character. Characters that still
// hold accounts stay assigned.
func (s *Service) UnassignCharacter(ctx context.Context, participantID string) error {
	p, err := s.Get(ctx, participantID)
	if err != nil {
		return err
	}
	if p.CharacterID == "" {
		return common.ErrNoCharacter
	}
	if err := s.requireNoAccounts(ctx, p.CharacterID); err != nil {
		return err
	}
	if _, err := s.people().Update(ctx, participantID, service.Fields{model.FieldCharacter: nil}); err != nil {
		return fmt.Errorf("failed to unassign character: %w", err)
	}
	common.LogInfo(ctx, "Unassigned character", common.Fields{"participant": participantID, "character": p.CharacterID})
	return nil
}

func (s *Service) requireNoAccounts(ctx context.Context, characterID string) error {
	rec, err := s.characters().Get(ctx, characterID)
	if err != nil {
		return err
	}
	if n := len(rec.Fields.Links(model.FieldAccount)); n > 0 {
		return fmt.Errorf("%w: %d", ErrHasAccounts, n)
	}
	return nil
}

func fromRecord(rec *service.Record) *model.Participant {
	return &model.Participant{
		ID:          rec.ID,
		Name:        rec.Fields.String(model.FieldName),
		Surname1:    rec.Fields.String(model.FieldSurname1),
		Surname2:    rec.Fields.String(model.FieldSurname2),
		Role:        model.Role(rec.Fields.String(model.FieldRole)),
		CharacterID: rec.Fields.String(model.FieldCharacter),
	}
}

func characterFromRecord(rec *service.Record) (*model.Character, error) {
	ref, err := rec.Fields.Int(model.FieldReference)
	if err != nil {
		return nil, err
	}
	return &model.Character{
		ID:            rec.ID,
		Occupation:    rec.Fields.String(model.FieldCharacter),
		Title:         rec.Fields.String(model.FieldTitle),
		Reference:     ref,
		ParticipantID: rec.Fields.String(model.FieldParticipant),
		AccountIDs:    rec.Fields.Links(model.FieldAccount),
	}, nil
}
