package patient

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned by repositories when a lookup matches no row.
var ErrNotFound = errors.New("patient not found")

// IdentityColumns are the input columns that describe who a patient is.
var IdentityColumns = []string{
	"nombres", "apellido_paterno", "apellido_materno",
	"sexo", "lugar_de_nacimiento", "fecha_de_nacimiento", "curp",
}

// DetailColumns are the slowly-changing contact columns kept in
// patient_details.
var DetailColumns = []string{"numero_de_expediente", "telefono", "alergia"}

// Patient maps to the patients table. NameKey is the canonical name key
// and is unique.
type Patient struct {
	ID              int64     `db:"patient_id" json:"id"`
	NameKey         string    `db:"nombre" json:"nombre"`
	GivenNames      string    `db:"nombres" json:"nombres"`
	PaternalSurname string    `db:"apellido_paterno" json:"apellido_paterno"`
	MaternalSurname string    `db:"apellido_materno" json:"apellido_materno"`
	Sex             string    `db:"sexo" json:"sexo"`
	BirthPlace      string    `db:"lugar_de_nacimiento" json:"lugar_de_nacimiento"`
	BirthDate       string    `db:"fecha_de_nacimiento" json:"fecha_de_nacimiento"`
	NationalID      string    `db:"curp" json:"curp"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// Detail maps to patient_details, one row per patient. Meta holds the
// unclassified input columns as a JSON object.
type Detail struct {
	ID           int64           `db:"detail_id" json:"id"`
	PatientID    int64           `db:"patient_id" json:"patient_id"`
	RecordNumber string          `db:"numero_de_expediente" json:"numero_de_expediente"`
	Phone        string          `db:"telefono" json:"telefono"`
	Allergy      string          `db:"alergia" json:"alergia"`
	Meta         json.RawMessage `db:"meta" json:"meta"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// Record is a patient together with its detail row, if one exists.
type Record struct {
	*Patient
	Detail *Detail `json:"detail,omitempty"`
}

func (d *Detail) metaOrEmpty() string {
	if len(d.Meta) == 0 {
		return "{}"
	}
	return string(d.Meta)
}
