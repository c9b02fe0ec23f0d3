package child

import (
	"encoding/json"
	"time"

	"github.com/grupka/grupka/core"
)

type Child struct {
	ID          string     `json:"id"`
	GroupID     string     `json:"groupId"`
	ParentID    string     `json:"parentId"`
	DisplayName string     `json:"displayName"`
	Bio         string     `json:"bio"`
	BirthDate   *BirthDate `json:"birthDate"`
	CreatedAt   time.Time  `json:"createdAt"` // UTC
	UpdatedAt   time.Time  `json:"updatedAt"` // UTC
}

func (c Child) MarshalJSON() ([]byte, error) {
	type alias Child
	var yearKnown bool
	if c.BirthDate != nil {
		yearKnown = c.BirthDate.YearKnown()
	}
	return json.Marshal(struct {
		alias
		BirthYearKnown bool `json:"birthYearKnown"`
	}{alias(c), yearKnown})
}

type NewChild struct {
	DisplayName string `json:"displayName" validate:"required,notblank,max=60"`
	Bio         string `json:"bio" validate:"max=2000"`
	BirthDate   string `json:"birthDate" validate:"omitempty,birthdate"`
}

func (nc *NewChild) Validate() error {
	nc.DisplayName = core.CleanString(nc.DisplayName)
	nc.Bio = core.CleanString(nc.Bio)
	nc.BirthDate = core.CleanString(nc.BirthDate)
	return core.Validate.Struct(nc)
}

// UpdateChild holds a partial update. An empty BirthDate clears it.
type UpdateChild struct {
	DisplayName *string `json:"displayName" validate:"omitempty,notblank,max=60"`
	Bio         *string `json:"bio" validate:"omitempty,max=2000"`
	BirthDate   *string `json:"birthDate" validate:"omitempty,birthdate"`
}

func (uc *UpdateChild) Validate() error {
	if uc.DisplayName != nil {
		uc.DisplayName = core.StringPtr(core.CleanString(*uc.DisplayName))
	}
	if uc.Bio != nil {
		uc.Bio = core.StringPtr(core.CleanString(*uc.Bio))
	}
	if uc.BirthDate != nil {
		uc.BirthDate = core.StringPtr(core.CleanString(*uc.BirthDate))
	}
	return core.Validate.Struct(uc)
}

type BioRequest struct {
	Hints string `json:"hints" validate:"max=500"`
}

func (br *BioRequest) Validate() error {
	br.Hints = core.CleanString(br.Hints)
	return core.Validate.Struct(br)
}

type Bio struct {
	Bio string `json:"bio"`
}
