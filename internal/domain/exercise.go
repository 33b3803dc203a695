// internal/domain/exercise.go
package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// BodyweightTag marks a set that is performed without external load.
const BodyweightTag = "Bodyweight"

type Exercise struct {
	Name     string            `bson:"name" json:"name"`
	Metadata map[string]string `bson:"metadata,omitempty" json:"metadata,omitempty"` // muscle group, technique notes, ...
	Sets     SetScheme         `bson:"sets" json:"sets"`
}

// SetScheme holds the set count, one rest value for the whole exercise and
// the per-set prescription.
type SetScheme struct {
	Count       int       `bson:"count" json:"count"`
	RestMinutes float64   `bson:"restMinutes" json:"restMinutes"`
	PerSet      []SetSpec `bson:"perSet" json:"perSet"`
}

type SetSpec struct {
	Reps int  `bson:"reps" json:"reps"`
	Load Load `bson:"load" json:"load"`
}

// Load is either a weight in kg or the Bodyweight tag.
type Load struct {
	Kg         float64
	Bodyweight bool
}

func KgLoad(kg float64) Load { return Load{Kg: kg} }
func BodyweightLoad() Load    { return Load{Bodyweight: true} }

func (l Load) String() string {
	if l.Bodyweight {
		return BodyweightTag
	}
	return strconv.FormatFloat(l.Kg, 'f', -1, 64)
}

func (l Load) MarshalJSON() ([]byte, error) {
	if l.Bodyweight {
		return json.Marshal(BodyweightTag)
	}
	return json.Marshal(l.Kg)
}

func (l *Load) UnmarshalJSON(data []byte) error {
	var kg float64
	if err := json.Unmarshal(data, &kg); err == nil {
		*l = KgLoad(kg)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: load must be a number or %q", ErrPlanSchema, BodyweightTag)
	}
	parsed, err := parseLoadString(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

func (l Load) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if l.Bodyweight {
		return bson.MarshalValue(BodyweightTag)
	}
	return bson.MarshalValue(l.Kg)
}

func (l *Load) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bson.TypeString:
		parsed, err := parseLoadString(raw.StringValue())
		if err != nil {
			return err
		}
		*l = parsed
	case bson.TypeDouble:
		*l = KgLoad(raw.Double())
	case bson.TypeInt32:
		*l = KgLoad(float64(raw.Int32()))
	case bson.TypeInt64:
		*l = KgLoad(float64(raw.Int64()))
	default:
		return fmt.Errorf("%w: unexpected load type %s", ErrPlanSchema, t)
	}
	return nil
}

func parseLoadString(s string) (Load, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, BodyweightTag) {
		return BodyweightLoad(), nil
	}
	kg, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Load{}, fmt.Errorf("%w: load %q is neither a number nor %q", ErrPlanSchema, s, BodyweightTag)
	}
	return KgLoad(kg), nil
}
