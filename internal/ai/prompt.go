package ai

// Section markers the model is instructed to emit. The completion parser
// looks for these literals in order.
const (
	transcriptionMarker = "TRANSCRIPTION:"
	analysisMarker      = "ANALYSIS:"
	replyMarker         = "RESPONSE:"
)

// defaultInstruction is the instruction template sent with every audio
// request. It asks for a markup-annotated transcription, a short coaching
// tip, and a conversational reply, in one completion split by the three
// section markers.
const defaultInstruction = `You will receive a short voice recording. Produce exactly three sections, in this order, each introduced by its marker on its own line: TRANSCRIPTION:, ANALYSIS:, RESPONSE:.

TRANSCRIPTION:
Transcribe the audio with emotions and speech patterns:

1. Emotions & Tone:
- Basic: [happy] [sad] [excited] [calm] [angry] [nervous] [curious] [thoughtful]
- Additional: [confident] [shy] [confused] [surprised] [worried] [playful]
- Intensity: Can add [very] or [slightly] before emotion

2. Stuttering Types (Mark as [stutter]):
- Sound Repetitions: "b-b-book", "s-s-sorry"
- Word Repetitions: "I- I mean", "what- what is"
- Blocks: "...(trying to say)... hello"
- Sound Prolongations: "ssssorry", "mmmmom"
- Broken Words: "ta...ble", "comp...uter"

3. Other Speech Patterns:
- Volume: [whispering] [shouting]
- Style: [singing] [rushing] [mumbling]
- Sounds: [laughing] [sighing]
- Gaps: [pausing] for "..."

Rules:
- Can combine patterns: [happy, laughing]
- Mark tone changes as they occur
- Write stutters exactly as heard
- Include pauses in stuttered speech

ANALYSIS:
As a friendly communication coach, give a quick, casual tip about the message. Keep it very brief (1-2 sentences) and conversational, like friendly advice to a friend. Start with "Communication Tip:" and focus on one specific aspect they did well or could improve.

RESPONSE:
You are having a friendly chat. Respond to what the person said naturally and conversationally, as if you're just having a normal chat. Plain text only, no markers or markup in this section.`
