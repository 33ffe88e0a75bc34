package metadata

import "github.com/terraconstructs/herbledger/cmd/herbledger/internal/custody"

// Document is a decoded stage metadata document.
type Document interface {
	Stage() custody.Stage
	BatchReference() string
}

// Location is a harvest coordinate.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// CollectorDocument describes a harvest.
type CollectorDocument struct {
	Type             string   `json:"type"`
	BatchRef         string   `json:"batchRef"`
	CollectorID      string   `json:"collectorId"`
	Species          string   `json:"species"`
	QuantityKg       float64  `json:"quantityKg"`
	Location         Location `json:"location"`
	HarvestTimestamp int64    `json:"harvestTimestamp"`
	RootAgeYears     float64  `json:"rootAgeYears,omitempty"`
	MoisturePercent  float64  `json:"moisturePercent,omitempty"`
	Photo            string   `json:"photo,omitempty"`
	Notes            string   `json:"notes,omitempty"`
}

func (d *CollectorDocument) Stage() custody.Stage   { return custody.StageCollector }
func (d *CollectorDocument) BatchReference() string { return d.BatchRef }

// MiddlemanDocument describes a custody transfer.
type MiddlemanDocument struct {
	Type                 string  `json:"type"`
	BatchRef             string  `json:"batchRef"`
	From                 string  `json:"from"`
	To                   string  `json:"to"`
	TransferSignatureCID string  `json:"transferSignatureCid,omitempty"`
	StorageCID           string  `json:"storageCid,omitempty"`
	TransportCID         string  `json:"transportCid,omitempty"`
	FinalWeightKg        float64 `json:"finalWeightKg,omitempty"`
}

func (d *MiddlemanDocument) Stage() custody.Stage   { return custody.StageMiddleman }
func (d *MiddlemanDocument) BatchReference() string { return d.BatchRef }

// LabTests holds lab measurements and report links.
type LabTests struct {
	MoisturePercent      float64 `json:"moisturePercent,omitempty"`
	PesticideReportCID   string  `json:"pesticideReportCid,omitempty"`
	HeavyMetalsReportCID string  `json:"heavyMetalsReportCid,omitempty"`
	DNABarcodeCID        string  `json:"dnaBarcodeCid,omitempty"`
	LabReportPdfCID      string  `json:"labReportPdfCid,omitempty"`
}

// LabDocument describes a quality test.
type LabDocument struct {
	Type      string   `json:"type"`
	LabID     string   `json:"labId"`
	BatchRef  string   `json:"batchRef"`
	Tests     LabTests `json:"tests"`
	Pass      bool     `json:"pass"`
	Timestamp int64    `json:"timestamp"`
}

func (d *LabDocument) Stage() custody.Stage   { return custody.StageLab }
func (d *LabDocument) BatchReference() string { return d.BatchRef }

// ManufacturerDocument describes processing into a finished product.
type ManufacturerDocument struct {
	Type          string  `json:"type"`
	BatchRef      string  `json:"batchRef"`
	ProcessingCID string  `json:"processingCid,omitempty"`
	Formulation   string  `json:"formulation"`
	FinalBatchQty float64 `json:"finalBatchQty,omitempty"`
	QRRootCID     string  `json:"qrRootCid,omitempty"`
	GMPID         string  `json:"gmpId"`
}

func (d *ManufacturerDocument) Stage() custody.Stage   { return custody.StageManufacturer }
func (d *ManufacturerDocument) BatchReference() string { return d.BatchRef }

func newDocument(stage custody.Stage) Document {
	switch stage {
	case custody.StageCollector:
		return &CollectorDocument{}
	case custody.StageMiddleman:
		return &MiddlemanDocument{}
	case custody.StageLab:
		return &LabDocument{}
	case custody.StageManufacturer:
		return &ManufacturerDocument{}
	default:
		return nil
	}
}
