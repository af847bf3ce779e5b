package models

import "strings"

// Quality mức chất lượng do dịch vụ validation trả về
type Quality string

const (
	QualityDomicileCertified Quality = "DOMICILE_CERTIFIED"
	QualityCertified         Quality = "CERTIFIED"
	QualityVerified          Quality = "VERIFIED"
	QualityUsable            Quality = "USABLE"
	QualityCompromised       Quality = "COMPROMISED"
	QualityUnusable          Quality = "UNUSABLE"
)

var qualityScores = map[Quality]int{
	QualityDomicileCertified: 100,
	QualityCertified:         100,
	QualityVerified:          90,
	QualityCompromised:       60,
	QualityUsable:            50,
	QualityUnusable:          0,
}

// ParseQuality upper-cases the label. Unknown labels are kept as given so
// they still reach the caller; they score 0.
func ParseQuality(label string) Quality {
	return Quality(strings.ToUpper(strings.TrimSpace(label)))
}

// QualityToScore maps a label to its fixed score, case-insensitively.
func QualityToScore(label string) int {
	return qualityScores[ParseQuality(label)]
}

// Score điểm của quality
func (q Quality) Score() int {
	return QualityToScore(string(q))
}

// IsCertified reports CERTIFIED or DOMICILE_CERTIFIED.
func (q Quality) IsCertified() bool {
	switch ParseQuality(string(q)) {
	case QualityCertified, QualityDomicileCertified:
		return true
	}
	return false
}
