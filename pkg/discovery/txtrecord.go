package discovery

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// EncodeGatewayTXT builds the TXT records of a gateway.
func EncodeGatewayTXT(info *GatewayInfo) TXTRecordMap {
	txt := TXTRecordMap{
		TXTVersion:  info.Version,
		TXTProtocol: strconv.Itoa(int(info.Protocol)),
	}
	if info.Framing != "" {
		txt[TXTFraming] = info.Framing
	}
	return txt
}

// DecodeGatewayTXT parses gateway TXT records. Port and Name are not part
// of the TXT set and stay zero.
func DecodeGatewayTXT(txt TXTRecordMap) (*GatewayInfo, error) {
	ver, ok := txt[TXTVersion]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTVersion)
	}
	pvStr, ok := txt[TXTProtocol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTProtocol)
	}
	pv, err := strconv.ParseUint(pvStr, 10, 8)
	if err != nil {
		return nil, fmt.Errorf("%w: %s=%q", ErrInvalidTXTRecord, TXTProtocol, pvStr)
	}
	return &GatewayInfo{
		Version:  ver,
		Protocol: uint8(pv),
		Framing:  txt[TXTFraming],
	}, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to sorted "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	slices.Sort(result)
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		k, v, _ := strings.Cut(s, "=")
		if k != "" {
			txt[k] = v
		}
	}
	return txt
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrMissingRequired)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
