package protocol

// EncodeRegistration builds 0x00 || utf8(identity) || 0xFF.
func EncodeRegistration(identity string) ([]byte, error) {
	return Registration{Identity: identity}.MarshalBinary()
}

func DecodeRegistration(data []byte) (string, error) {
	var r Registration
	if err := r.UnmarshalBinary(data); err != nil {
		return "", err
	}
	return r.Identity, nil
}
