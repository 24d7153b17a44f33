package consultation

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned by repositories when a lookup matches no row.
var ErrNotFound = errors.New("consultation not found")

// ErrInvalidRange is returned for malformed or inverted date bounds.
var ErrInvalidRange = errors.New("invalid date range")

// CoreColumns are the fixed consultation columns, in table order.
var CoreColumns = []string{
	"fecha_consulta",
	"hora",
	"peso",
	"talla",
	"tension_arterial",
	"fc",
	"fr",
	"temperatura",
	"dxtx",
	"imc",
	"cc",
	"plan",
	"subjetivo",
	"neurologico",
	"cabeza",
	"torax",
	"abdomen",
	"extremidades",
	"analisis",
	"diagnostico",
	"tratamiento",
	"medicamentos",
	"pronostico",
	"primera_vez_ano",
	"relacion_temporal",
	"dm2",
	"has",
	"ira",
	"asma",
	"conjuntivitis",
	"otitis",
	"deteccion_salud_mental",
	"folio_receta",
	"promocion_de_la_salud",
	"linea_vida",
	"esquema_vacunacion",
	"referido",
	"deteccion_adicciones",
	"deteccion_violencia_mujer",
	"prueba_edi",
	"resultado_edi",
	"resultado_battelle",
	"eda_tratamiento",
	"ira_tratamiento",
	"aplicacion_cedula_cancer_ano",
	"intervenciones_gerontologicas",
	"chisme",
	"febril",
	"embarazada",
	"nutricion",
	"eda",
}

// ReservedColumns are internal consultation columns. Input columns with
// these names are never added to the table; their values stay in Data.
var ReservedColumns = []string{"consultation_id", "patient_id", "row_hash", "data", "created_at"}

// NarrativeColumns are the free-text clinical columns searched by keyword.
var NarrativeColumns = []string{"plan", "subjetivo", "analisis", "diagnostico", "tratamiento", "pronostico"}

var coreIndex = func() map[string]int {
	m := make(map[string]int, len(CoreColumns))
	for i, col := range CoreColumns {
		m[col] = i
	}
	return m
}()

// Consultation maps to the consultations table. Rows are append-only and
// Fingerprint is unique. Extra carries values for columns added to the
// table at runtime.
type Consultation struct {
	ID                          int64             `db:"consultation_id" json:"id"`
	PatientID                   int64             `db:"patient_id" json:"patient_id"`
	Date                        string            `db:"fecha_consulta" json:"fecha_consulta"`
	Time                        string            `db:"hora" json:"hora"`
	Weight                      string            `db:"peso" json:"peso"`
	Height                      string            `db:"talla" json:"talla"`
	BloodPressure               string            `db:"tension_arterial" json:"tension_arterial"`
	HeartRate                   string            `db:"fc" json:"fc"`
	RespiratoryRate             string            `db:"fr" json:"fr"`
	Temperature                 string            `db:"temperatura" json:"temperatura"`
	Glucose                     string            `db:"dxtx" json:"dxtx"`
	BMI                         string            `db:"imc" json:"imc"`
	WaistCircumference          string            `db:"cc" json:"cc"`
	Plan                        string            `db:"plan" json:"plan"`
	Subjective                  string            `db:"subjetivo" json:"subjetivo"`
	Neurological                string            `db:"neurologico" json:"neurologico"`
	Head                        string            `db:"cabeza" json:"cabeza"`
	Thorax                      string            `db:"torax" json:"torax"`
	Abdomen                     string            `db:"abdomen" json:"abdomen"`
	Extremities                 string            `db:"extremidades" json:"extremidades"`
	Analysis                    string            `db:"analisis" json:"analisis"`
	Diagnosis                   string            `db:"diagnostico" json:"diagnostico"`
	Treatment                   string            `db:"tratamiento" json:"tratamiento"`
	Medications                 string            `db:"medicamentos" json:"medicamentos"`
	Prognosis                   string            `db:"pronostico" json:"pronostico"`
	FirstVisitOfYear            string            `db:"primera_vez_ano" json:"primera_vez_ano"`
	TemporalRelation            string            `db:"relacion_temporal" json:"relacion_temporal"`
	Diabetes                    string            `db:"dm2" json:"dm2"`
	Hypertension                string            `db:"has" json:"has"`
	RespiratoryInfection        string            `db:"ira" json:"ira"`
	Asthma                      string            `db:"asma" json:"asma"`
	Conjunctivitis              string            `db:"conjuntivitis" json:"conjuntivitis"`
	Otitis                      string            `db:"otitis" json:"otitis"`
	MentalHealthScreening       string            `db:"deteccion_salud_mental" json:"deteccion_salud_mental"`
	PrescriptionFolio           string            `db:"folio_receta" json:"folio_receta"`
	HealthPromotion             string            `db:"promocion_de_la_salud" json:"promocion_de_la_salud"`
	LifeLine                    string            `db:"linea_vida" json:"linea_vida"`
	VaccinationSchedule         string            `db:"esquema_vacunacion" json:"esquema_vacunacion"`
	Referred                    string            `db:"referido" json:"referido"`
	AddictionScreening          string            `db:"deteccion_adicciones" json:"deteccion_adicciones"`
	ViolenceScreening           string            `db:"deteccion_violencia_mujer" json:"deteccion_violencia_mujer"`
	EDITest                     string            `db:"prueba_edi" json:"prueba_edi"`
	EDIResult                   string            `db:"resultado_edi" json:"resultado_edi"`
	BattelleResult              string            `db:"resultado_battelle" json:"resultado_battelle"`
	DiarrheaTreatment           string            `db:"eda_tratamiento" json:"eda_tratamiento"`
	RespiratoryTreatment        string            `db:"ira_tratamiento" json:"ira_tratamiento"`
	CancerScreeningForm         string            `db:"aplicacion_cedula_cancer_ano" json:"aplicacion_cedula_cancer_ano"`
	GerontologicalInterventions string            `db:"intervenciones_gerontologicas" json:"intervenciones_gerontologicas"`
	Remarks                     string            `db:"chisme" json:"chisme"`
	Febrile                     string            `db:"febril" json:"febril"`
	Pregnant                    string            `db:"embarazada" json:"embarazada"`
	Nutrition                   string            `db:"nutricion" json:"nutricion"`
	Diarrhea                    string            `db:"eda" json:"eda"`
	Fingerprint                 string            `db:"row_hash" json:"row_hash"`
	Data                        json.RawMessage   `db:"data" json:"data"`
	Extra                       map[string]string `db:"-" json:"extra,omitempty"`
	CreatedAt                   time.Time         `db:"created_at" json:"created_at"`
}

// DailyCount is the number of consultations recorded on one date.
type DailyCount struct {
	Date  string `json:"fecha_consulta"`
	Count int    `json:"count"`
}

// fieldPtrs returns pointers to the core fields in CoreColumns order.
func (c *Consultation) fieldPtrs() []*string {
	return []*string{
		&c.Date,
		&c.Time,
		&c.Weight,
		&c.Height,
		&c.BloodPressure,
		&c.HeartRate,
		&c.RespiratoryRate,
		&c.Temperature,
		&c.Glucose,
		&c.BMI,
		&c.WaistCircumference,
		&c.Plan,
		&c.Subjective,
		&c.Neurological,
		&c.Head,
		&c.Thorax,
		&c.Abdomen,
		&c.Extremities,
		&c.Analysis,
		&c.Diagnosis,
		&c.Treatment,
		&c.Medications,
		&c.Prognosis,
		&c.FirstVisitOfYear,
		&c.TemporalRelation,
		&c.Diabetes,
		&c.Hypertension,
		&c.RespiratoryInfection,
		&c.Asthma,
		&c.Conjunctivitis,
		&c.Otitis,
		&c.MentalHealthScreening,
		&c.PrescriptionFolio,
		&c.HealthPromotion,
		&c.LifeLine,
		&c.VaccinationSchedule,
		&c.Referred,
		&c.AddictionScreening,
		&c.ViolenceScreening,
		&c.EDITest,
		&c.EDIResult,
		&c.BattelleResult,
		&c.DiarrheaTreatment,
		&c.RespiratoryTreatment,
		&c.CancerScreeningForm,
		&c.GerontologicalInterventions,
		&c.Remarks,
		&c.Febrile,
		&c.Pregnant,
		&c.Nutrition,
		&c.Diarrhea,
	}
}

// SetField assigns v to the core field stored in column col. It reports
// false when col is not a core column.
func (c *Consultation) SetField(col, v string) bool {
	i, ok := coreIndex[col]
	if !ok {
		return false
	}
	*c.fieldPtrs()[i] = v
	return true
}

// Field returns the value of core column col, or "" if col is not core.
func (c *Consultation) Field(col string) string {
	i, ok := coreIndex[col]
	if !ok {
		return ""
	}
	return *c.fieldPtrs()[i]
}

// IsCore reports whether col is a core consultation column.
func IsCore(col string) bool {
	_, ok := coreIndex[col]
	return ok
}

// IsReserved reports whether col names an internal consultation column.
func IsReserved(col string) bool {
	for _, r := range ReservedColumns {
		if strings.EqualFold(r, col) {
			return true
		}
	}
	return false
}

func (c *Consultation) dataOrEmpty() string {
	if len(c.Data) == 0 {
		return "{}"
	}
	return string(c.Data)
}
