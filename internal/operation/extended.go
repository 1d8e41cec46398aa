package operation

// ExtendedOperation is an extended request identified by its OID.
type ExtendedOperation interface {
	Operation
	RequestOID() string
	RequestValue() []byte
	ResponseOID() string
	SetResponseOID(oid string)
	ResponseValue() []byte
	SetResponseValue(v []byte)
}

// Extended is the concrete extended operation.
type Extended struct {
	*Base
	requestOID    string
	requestValue  []byte
	responseOID   string
	responseValue []byte
}

// NewExtended creates an extended operation.
func NewExtended(h Header, oid string, value []byte) *Extended {
	return &Extended{
		Base:         newBase(TypeExtended, h),
		requestOID:   oid,
		requestValue: value,
	}
}

func (o *Extended) RequestOID() string   { return o.requestOID }
func (o *Extended) RequestValue() []byte { return o.requestValue }

func (o *Extended) ResponseOID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.responseOID
}

func (o *Extended) SetResponseOID(oid string) {
	o.mu.Lock()
	o.responseOID = oid
	o.mu.Unlock()
}

func (o *Extended) ResponseValue() []byte {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.responseValue
}

func (o *Extended) SetResponseValue(v []byte) {
	o.mu.Lock()
	o.responseValue = v
	o.mu.Unlock()
}
