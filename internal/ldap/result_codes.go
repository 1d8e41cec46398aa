package ldap

import (
	"fmt"

	goldap "github.com/go-ldap/ldap/v3"
)

// ResultCode represents an LDAP result code as defined in RFC 4511 Section 4.1.9,
// extended with the cancel operation codes of RFC 3909.
type ResultCode int

// LDAP result codes per RFC 4511 Section 4.1.9 and RFC 3909.
const (
	// ResultUndefined is the result code of an operation that has not
	// produced a result yet. It never goes on the wire.
	ResultUndefined ResultCode = -1

	ResultSuccess                      ResultCode = 0
	ResultOperationsError              ResultCode = 1
	ResultProtocolError                ResultCode = 2
	ResultTimeLimitExceeded            ResultCode = 3
	ResultSizeLimitExceeded            ResultCode = 4
	ResultCompareFalse                 ResultCode = 5
	ResultCompareTrue                  ResultCode = 6
	ResultAuthMethodNotSupported       ResultCode = 7
	ResultStrongerAuthRequired         ResultCode = 8
	ResultReferral                     ResultCode = 10
	ResultAdminLimitExceeded           ResultCode = 11
	ResultUnavailableCriticalExtension ResultCode = 12
	ResultConfidentialityRequired      ResultCode = 13
	ResultSASLBindInProgress           ResultCode = 14
	ResultNoSuchAttribute              ResultCode = 16
	ResultUndefinedAttributeType       ResultCode = 17
	ResultInappropriateMatching        ResultCode = 18
	ResultConstraintViolation          ResultCode = 19
	ResultAttributeOrValueExists       ResultCode = 20
	ResultInvalidAttributeSyntax       ResultCode = 21
	ResultNoSuchObject                 ResultCode = 32
	ResultAliasProblem                 ResultCode = 33
	ResultInvalidDNSyntax              ResultCode = 34
	ResultAliasDereferencingProblem    ResultCode = 36
	ResultInappropriateAuthentication  ResultCode = 48
	ResultInvalidCredentials           ResultCode = 49
	ResultInsufficientAccessRights     ResultCode = 50
	ResultBusy                         ResultCode = 51
	ResultUnavailable                  ResultCode = 52
	ResultUnwillingToPerform           ResultCode = 53
	ResultLoopDetect                   ResultCode = 54
	ResultNamingViolation              ResultCode = 64
	ResultObjectClassViolation         ResultCode = 65
	ResultNotAllowedOnNonLeaf          ResultCode = 66
	ResultNotAllowedOnRDN              ResultCode = 67
	ResultEntryAlreadyExists           ResultCode = 68
	ResultObjectClassModsProhibited    ResultCode = 69
	ResultAffectsMultipleDSAs          ResultCode = 71
	ResultOther                        ResultCode = 80

	// ResultCanceled is returned to a cancelled operation and to the
	// cancel request that stopped it.
	ResultCanceled ResultCode = 118
	// ResultNoSuchOperation means the operation to cancel was not found.
	ResultNoSuchOperation ResultCode = 119
	// ResultTooLate means the operation to cancel had already responded.
	ResultTooLate ResultCode = 120
	// ResultCannotCancel means the operation could not be cancelled.
	ResultCannotCancel ResultCode = 121
)

// String returns the RFC name of the result code.
func (r ResultCode) String() string {
	if r == ResultUndefined {
		return "Undefined"
	}
	if r >= 0 {
		if name, ok := goldap.LDAPResultCodeMap[uint16(r)]; ok {
			return name
		}
	}
	return fmt.Sprintf("Unknown(%d)", int(r))
}

// IsSuccess returns true for codes that complete an operation normally.
func (r ResultCode) IsSuccess() bool {
	return r == ResultSuccess || r == ResultCompareFalse || r == ResultCompareTrue
}

// IsError returns true for codes that report a failure to the client.
func (r ResultCode) IsError() bool {
	return r != ResultUndefined && r != ResultSuccess && r != ResultCompareFalse &&
		r != ResultCompareTrue && r != ResultReferral && r != ResultSASLBindInProgress
}
