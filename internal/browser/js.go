// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package browser

// Page-side helpers evaluated through CDP. Everything is scoped to the page
// canvas so the sidebar and topbar never get scanned, and rendered-equation
// internals are filtered out at the text-node level so their delimiters are
// invisible to the scan.

// jsExpandToggles clicks every collapsed toggle currently in the canvas and
// returns how many it opened. One call is one sweep; newly revealed toggles
// need another sweep.
const jsExpandToggles = `
() => {
	const root = document.querySelector('.notion-page-content');
	if (!root) return 0;
	const buttons = Array.from(root.querySelectorAll('[role="button"][aria-expanded="false"]'));
	let opened = 0;
	for (const b of buttons) {
		try { b.click(); opened++; } catch (e) {}
	}
	return opened;
}`

// jsCollectBlocks returns [{path, text}] for every visible content-editable
// leaf block whose text mentions a marker at all. text is the concatenation
// of the block's text nodes outside equation tokens, the same coordinate
// space jsSelectSpan searches in.
const jsCollectBlocks = `
() => {
	const root = document.querySelector('.notion-page-content');
	if (!root) return [];
	const EXCLUDE = '.notion-text-equation-token, .katex';

	const candidates = Array.from(root.querySelectorAll('[data-content-editable-leaf="true"]'))
		.filter(el => el && el.offsetParent !== null && !el.closest(EXCLUDE));

	const getXPath = (el) => {
		if (el.id) return '//*[@id="' + el.id + '"]';
		const parts = [];
		while (el && el.nodeType === Node.ELEMENT_NODE) {
			let nb = 0;
			let idx = 0;
			const sibs = el.parentNode ? el.parentNode.childNodes : [];
			for (let i = 0; i < sibs.length; i++) {
				const sib = sibs[i];
				if (sib.nodeType === Node.ELEMENT_NODE && sib.nodeName === el.nodeName) {
					nb++;
					if (sib === el) idx = nb;
				}
			}
			const tag = el.nodeName.toLowerCase();
			parts.unshift(nb > 1 ? tag + '[' + idx + ']' : tag);
			el = el.parentNode;
		}
		return '/' + parts.join('/');
	};

	const textOf = (el) => {
		const w = document.createTreeWalker(el, NodeFilter.SHOW_TEXT, {
			acceptNode: (n) => n.parentElement && n.parentElement.closest(EXCLUDE)
				? NodeFilter.FILTER_REJECT
				: NodeFilter.FILTER_ACCEPT
		});
		let out = '';
		let n;
		while ((n = w.nextNode())) out += n.nodeValue;
		return out;
	};

	const results = [];
	for (const el of candidates) {
		const t = textOf(el);
		if (t.indexOf('$') === -1) continue;
		results.push({ path: getXPath(el), text: t });
	}
	return results;
}`

// jsSelectSpan re-finds raw inside the container and selects exactly it.
// The search runs over the same filtered text-node sequence jsCollectBlocks
// produced, so a raw split across styled runs still resolves; the range ends
// are mapped back from string offsets to (node, offset) pairs.
const jsSelectSpan = `
(path, raw, occurrence) => {
	const el = document.evaluate(path, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
	if (!el) return { ok: false, notFound: true, error: 'container not found' };

	try { el.scrollIntoView({ block: 'center', inline: 'nearest' }); } catch (e) {}

	const EXCLUDE = '.notion-text-equation-token, .katex';
	const nodes = [];
	const w = document.createTreeWalker(el, NodeFilter.SHOW_TEXT, {
		acceptNode: (n) => n.parentElement && n.parentElement.closest(EXCLUDE)
			? NodeFilter.FILTER_REJECT
			: NodeFilter.FILTER_ACCEPT
	});
	let n;
	let full = '';
	while ((n = w.nextNode())) {
		nodes.push({ node: n, start: full.length });
		full += n.nodeValue;
	}

	let idx = -1;
	let from = 0;
	for (let k = 0; k <= occurrence; k++) {
		idx = full.indexOf(raw, from);
		if (idx < 0) return { ok: false, notFound: true, error: 'text not found' };
		from = idx + 1;
	}
	const end = idx + raw.length;

	const locate = (offset, isEnd) => {
		for (let i = nodes.length - 1; i >= 0; i--) {
			const rel = offset - nodes[i].start;
			const len = nodes[i].node.nodeValue.length;
			if (rel >= 0 && (isEnd ? rel <= len : rel < len)) {
				return { node: nodes[i].node, offset: rel };
			}
		}
		return null;
	};
	const s = locate(idx, false);
	const e = locate(end, true);
	if (!s || !e) return { ok: false, error: 'offset mapping failed' };

	const range = document.createRange();
	range.setStart(s.node, s.offset);
	range.setEnd(e.node, e.offset);
	const sel = window.getSelection();
	sel.removeAllRanges();
	sel.addRange(range);

	let focusEl = el;
	while (focusEl && focusEl.nodeType === Node.ELEMENT_NODE) {
		if (focusEl.getAttribute && focusEl.getAttribute('contenteditable') === 'true') break;
		focusEl = focusEl.parentElement;
	}
	if (focusEl) focusEl.focus();

	return { ok: true };
}`

// jsCountLiteral counts literal occurrences of raw in the container's
// filtered text. A missing container counts zero: absence means the span was
// already resolved.
const jsCountLiteral = `
(path, raw) => {
	const el = document.evaluate(path, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
	if (!el) return 0;
	const EXCLUDE = '.notion-text-equation-token, .katex';
	const w = document.createTreeWalker(el, NodeFilter.SHOW_TEXT, {
		acceptNode: (n) => n.parentElement && n.parentElement.closest(EXCLUDE)
			? NodeFilter.FILTER_REJECT
			: NodeFilter.FILTER_ACCEPT
	});
	let full = '';
	let n;
	while ((n = w.nextNode())) full += n.nodeValue;
	let count = 0;
	let from = 0;
	for (;;) {
		const idx = full.indexOf(raw, from);
		if (idx < 0) break;
		count++;
		from = idx + 1;
	}
	return count;
}`

// jsEditorOpen reports whether the equation editor overlay is up after the
// shortcut. Notion mounts the editor input inside the overlay container.
const jsEditorOpen = `
() => {
	const overlay = document.querySelector('.notion-overlay-container');
	if (!overlay) return false;
	return !!overlay.querySelector('textarea, [contenteditable="true"], [placeholder]');
}`

// jsHideAutomation masks the webdriver flag before any page script runs.
// Helps the Google OAuth path treat the session as a normal browser.
const jsHideAutomation = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });`
