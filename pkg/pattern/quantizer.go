package pattern

// quantize fills slots from the token stream in order. Slots left over
// once the stream runs out stay at the zero Event, which is a rest; tokens
// beyond len(slots) are never pulled except for one lookahead.
func quantize(tz *Tokenizer, dec decoder, slots []Event) Summary {
	var sum Summary
	for sum.Steps < len(slots) {
		tok, ok := tz.Next()
		if !ok {
			break
		}
		slots[sum.Steps] = dec.decode(tok)
		sum.Steps++
	}
	sum.Padded = len(slots) - sum.Steps
	if sum.Padded == 0 {
		_, sum.Truncated = tz.Next()
	}
	return sum
}

// emit wraps quantized slots into a pattern
func emit(slots []Event) Pattern {
	return Pattern{Events: slots, Length: uint32(len(slots))}
}
