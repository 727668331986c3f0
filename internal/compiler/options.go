package compiler

// MergeOptions merges option layers in order, later layers winning per
// key. Map-valued options merge structurally (key by key, recursively);
// scalar and list values replace wholesale. The input layers are never
// mutated and the result shares no maps with them.
func MergeOptions(layers ...map[string]any) map[string]any {
	result := make(map[string]any)
	for _, layer := range layers {
		mergeInto(result, layer)
	}
	return result
}

// mergeInto merges src into dst, deep-merging nested maps.
func mergeInto(dst, src map[string]any) {
	for key, val := range src {
		srcMap, srcIsMap := val.(map[string]any)
		if !srcIsMap {
			dst[key] = val
			continue
		}
		dstMap, dstIsMap := dst[key].(map[string]any)
		if !dstIsMap {
			dst[key] = cloneMap(srcMap)
			continue
		}
		merged := cloneMap(dstMap)
		mergeInto(merged, srcMap)
		dst[key] = merged
	}
}

// cloneMap deep-copies a map so merged results never alias an input layer.
func cloneMap(m map[string]any) map[string]any {
	clone := make(map[string]any, len(m))
	for key, val := range m {
		if nested, ok := val.(map[string]any); ok {
			clone[key] = cloneMap(nested)
			continue
		}
		clone[key] = val
	}
	return clone
}
