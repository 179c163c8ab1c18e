package domain

import "strings"

// PIIType is the classification tag set on a column by a PII detector.
type PIIType string

// Known PII types.
const (
	PIIPerson      PIIType = "PERSON"
	PIILocation    PIIType = "LOCATION"
	PIIBirthDate   PIIType = "BIRTH_DATE"
	PIIGender      PIIType = "GENDER"
	PIINationality PIIType = "NATIONALITY"
	PIIAddress     PIIType = "ADDRESS"
	PIIZipCode     PIIType = "ZIPCODE"
	PIIPOBox       PIIType = "POBOX"
	PIIPhone       PIIType = "PHONE"
	PIIEmail       PIIType = "EMAIL"
	PIIUserName    PIIType = "USER_NAME"
	PIIPassword    PIIType = "PASSWORD"
	PIICreditCard  PIIType = "CREDIT_CARD"
	PIISSN         PIIType = "SSN"
)

var piiTypes = map[PIIType]struct{}{
	PIIPerson: {}, PIILocation: {}, PIIBirthDate: {}, PIIGender: {},
	PIINationality: {}, PIIAddress: {}, PIIZipCode: {}, PIIPOBox: {},
	PIIPhone: {}, PIIEmail: {}, PIIUserName: {}, PIIPassword: {},
	PIICreditCard: {}, PIISSN: {},
}

// ParsePIIType validates a PII tag. Matching is case-insensitive.
func ParsePIIType(s string) (PIIType, error) {
	t := PIIType(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := piiTypes[t]; !ok {
		return "", ErrValidation("unknown PII type %q", s)
	}
	return t, nil
}
