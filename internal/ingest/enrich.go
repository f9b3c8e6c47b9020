package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tanaste-io/tanaste/internal/models"
	"github.com/tanaste-io/tanaste/internal/notifications"
	"github.com/tanaste-io/tanaste/internal/providers"
)

// EnrichPerson dispatches a person-shaped harvest for name/role, re-scores
// the Person entity, and persists anything new. A PersonEnriched
// notification fires only when the re-score actually produced a new
// headshot_url or wikidata_qid (SPEC_FULL.md §7 item 1) — a harvest that
// confirms already-known facts isn't "enrichment."
func (p *Pipeline) EnrichPerson(ctx context.Context, personID uuid.UUID, name string, role models.PersonRole) error {
	person, err := p.persons.FindByName(name, role)
	if err != nil {
		return err
	}
	if person == nil {
		person = &models.Person{ID: personID, Name: name, Role: role}
	}
	beforeQID, beforeHeadshot := stringOrEmpty(person.WikidataQID), stringOrEmpty(person.HeadshotURL)

	req := providers.LookupRequest{
		EntityKind: models.EntityPerson,
		EntityID:   person.ID,
		PersonName: name,
		PersonRole: role,
	}
	for _, r := range p.harvester.Harvest(ctx, req, models.MediaTypeUnknown) {
		for _, c := range r.Claims {
			if err := p.claims.Insert(&c); err != nil {
				return err
			}
		}
	}

	claims, err := p.claims.ByEntity(person.ID)
	if err != nil {
		return err
	}
	values := p.scorer.Score(models.EntityRef{Kind: models.EntityPerson, ID: person.ID}, claims, time.Now().UTC())
	for _, v := range values {
		if err := p.canonical.Upsert(v); err != nil {
			return err
		}
		switch v.FieldKey {
		case "wikidata_qid":
			person.WikidataQID = &v.Value
		case "headshot_url":
			person.HeadshotURL = &v.Value
		case "biography":
			person.Biography = &v.Value
		}
	}

	if err := p.persons.Upsert(person); err != nil {
		return err
	}

	if stringOrEmpty(person.WikidataQID) != beforeQID || stringOrEmpty(person.HeadshotURL) != beforeHeadshot {
		if err := p.persons.MarkEnriched(person.ID); err != nil {
			return err
		}
		p.dispatcher.Dispatch(notifications.Event{
			Type: notifications.PersonEnriched,
			Detail: name,
		})
	}
	return nil
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
