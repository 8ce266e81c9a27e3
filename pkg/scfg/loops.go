package scfg

// restructureLoops replaces every strongly connected component of m with
// two or more nodes by a loop region, recursing into loop bodies. outer
// holds the header nodes of the enclosing loop, if any: they are not part
// of m but may be the only way into a nested loop.
func (r *Restructurer) restructureLoops(m *BlockMap, outer map[Label]Block) error {
	var loops []LabelSet
	for _, scc := range m.ComputeSCC() {
		if scc.Len() > 1 {
			loops = append(loops, scc)
		}
	}
	r.logger.Debug("restructure loops", "loops", len(loops), "nodes", m.Len())

	for _, loop := range loops {
		if err := r.extractLoop(m, loop, outer); err != nil {
			return err
		}
	}
	return nil
}

func (r *Restructurer) extractLoop(m *BlockMap, loop LabelSet, outer map[Label]Block) error {
	headers, entries := m.findHeadersAndEntries(loop, outer)
	r.logger.Debug("loop", "nodes", loop, "headers", headers, "entries", entries)
	if headers.Len() == 0 && outer == nil {
		// nothing outside jumps in, so the loop must hold the entry
		if entry, ok := levelEntry(m); ok && loop.Has(entry) {
			headers.Add(entry)
		}
	}
	if headers.Len() != 1 {
		return &LoopError{Nodes: loop.Sorted(), Headers: headers.Sorted()}
	}
	head, _ := headers.First()

	preExits, postExits := m.FindExits(loop)
	r.logger.Debug("loop exits", "pre", preExits, "post", postExits)

	var preExit, postExit Label
	switch {
	case postExits.Len() != 1:
		preExit, postExit = m.JoinExits(loop, postExits, r.gen)
	case preExits.Len() == 1:
		preExit, _ = preExits.First()
		postExit, _ = postExits.First()
	default:
		return invariantf("loop %s leaves through %d pre-exits %s to the single post-exit %s",
			loop, preExits.Len(), preExits, postExits)
	}
	r.logger.Debug("loop exit pair", "pre", preExit, "post", postExit)

	body := NewBlockMap()
	header := make(map[Label]Block, 1)
	for _, l := range loop.Sorted() {
		b := withBackedge(m.pop(l), head)
		if l == head {
			header[l] = b
		} else {
			body.AddNode(b)
		}
	}

	region := &RegionBlock{
		BasicBlock: BasicBlock{
			Begin:       head,
			End:         postExit,
			JumpTargets: []Label{postExit},
		},
		Kind:      RegionLoop,
		Headers:   header,
		Subregion: body,
		Exit:      &preExit,
	}

	if err := r.restructureLoops(body, header); err != nil {
		return err
	}
	m.AddNode(region)
	return nil
}

// levelEntry returns the lowest label of m. Offset labels sort before
// synthetic ones, so at the top level this is where control starts.
func levelEntry(m *BlockMap) (Label, bool) {
	labels := m.Labels()
	if len(labels) == 0 {
		return Label{}, false
	}
	return labels[0], true
}
