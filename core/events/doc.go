// Package events defines the typed session engine event contract.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - session.*
//   - timer.*
//   - autosave.*
//   - turn.*
//   - capture.*
//   - speech.*
//
// session events
//
//   - SessionStateChanged (session.state_changed): the runner moved between
//     lifecycle states, e.g. ACTIVE to SUBMITTING.
//   - SessionCompleted (session.completed): the backend accepted the submit
//     and returned a result.
//   - SessionFailed (session.failed): a recoverable session level failure,
//     e.g. a rejected submit.
//
// timer events
//
//   - ElapsedTicked (timer.elapsed_ticked): the session clock advanced.
//   - CountdownTicked (timer.countdown_ticked): a per-question countdown
//     advanced; carries the remaining seconds.
//   - CountdownExpired (timer.countdown_expired): a countdown reached zero.
//     Emitted exactly once per question.
//
// autosave events
//
//   - AutosaveStarted (autosave.started): a draft snapshot was sent.
//   - AutosaveSaved (autosave.saved): the echoed draft was applied locally.
//   - AutosaveDiscarded (autosave.discarded_stale): the response arrived
//     after a newer local edit and was dropped.
//   - AutosaveFailed (autosave.failed): the save failed; the draft stays
//     dirty until the next debounce or periodic save.
//
// turn events
//
//   - PhaseChanged (turn.phase_changed): the interview entered a new phase.
//   - InputUnlocked (turn.input_unlocked): the candidate may answer.
//   - FeedbackReceived (turn.feedback_received): server feedback for the
//     current answer.
//
// capture events
//
//   - CaptureStarted (capture.started), CaptureStopped (capture.stopped):
//     microphone capture boundaries.
//   - TranscriptAppended (capture.transcript_appended): append-only
//     transcript segment plus the full running transcript.
//   - TranscriptionFailed (capture.transcription_failed): the previous
//     transcript is kept.
//   - MicrophoneDenied (capture.permission_denied): voice capture is
//     disabled for the rest of the session.
//
// speech events
//
//   - SpeechStarted (speech.started), SpeechEnded (speech.ended): question
//     narration boundaries. SpeechEnded is emitted once per narration.
package events
