package testutil

// HelloXML is the smallest useful experiment: one Routine showing a text
// for one second.
const HelloXML = `<?xml version="1.0" ?>
<PsychoPy2experiment encoding="utf-8" version="2021.2.3">
  <Settings>
    <Param name="expName" updates="None" val="hello" valType="str"/>
  </Settings>
  <Routines>
    <Routine name="trial">
      <TextComponent name="greeting">
        <Param name="text" updates="constant" val="Hello" valType="str"/>
        <Param name="startType" updates="None" val="time (s)" valType="str"/>
        <Param name="startVal" updates="None" val="0.0" valType="code"/>
        <Param name="stopType" updates="None" val="duration (s)" valType="str"/>
        <Param name="stopVal" updates="constant" val="1.0" valType="code"/>
      </TextComponent>
    </Routine>
  </Routines>
  <Flow>
    <Routine name="trial"/>
  </Flow>
</PsychoPy2experiment>
`

// StroopXML is a Stroop task: a word in a colour, a keyboard response
// scored against the condition's correct answer, repeated by a trial loop
// over inline conditions.
const StroopXML = `<?xml version="1.0" ?>
<PsychoPy2experiment encoding="utf-8" version="2021.2.3">
  <Settings>
    <Param name="expName" updates="None" val="stroop" valType="str"/>
    <Param name="Show info dlg" updates="None" val="True" valType="bool"/>
    <Param name="Save csv file" updates="None" val="True" valType="bool"/>
  </Settings>
  <Routines>
    <Routine name="trial">
      <TextComponent name="word">
        <Param name="text" updates="set every repeat" val="$text" valType="str"/>
        <Param name="color" updates="set every repeat" val="$letterColor" valType="color"/>
        <Param name="startType" updates="None" val="time (s)" valType="str"/>
        <Param name="startVal" updates="None" val="0.5" valType="code"/>
        <Param name="stopType" updates="None" val="duration (s)" valType="str"/>
        <Param name="stopVal" updates="constant" val="" valType="code"/>
      </TextComponent>
      <KeyboardComponent name="resp">
        <Param name="allowedKeys" updates="constant" val="'left','down','right'" valType="code"/>
        <Param name="storeCorrect" updates="None" val="True" valType="bool"/>
        <Param name="correctAns" updates="constant" val="$corrAns" valType="str"/>
        <Param name="startType" updates="None" val="time (s)" valType="str"/>
        <Param name="startVal" updates="None" val="0.5" valType="code"/>
        <Param name="stopType" updates="None" val="duration (s)" valType="str"/>
        <Param name="stopVal" updates="constant" val="" valType="code"/>
      </KeyboardComponent>
    </Routine>
  </Routines>
  <Flow>
    <LoopInitiator loopType="TrialHandler" name="trials">
      <Param name="name" updates="None" val="trials" valType="code"/>
      <Param name="nReps" updates="None" val="5" valType="num"/>
      <Param name="loopType" updates="None" val="random" valType="str"/>
      <Param name="conditions" updates="None" val="[{'text': 'red', 'letterColor': 'red', 'corrAns': 'left'}, {'text': 'green', 'letterColor': 'blue', 'corrAns': 'right'}]" valType="str"/>
      <Param name="conditionsFile" updates="None" val="" valType="file"/>
      <Param name="isTrials" updates="None" val="True" valType="bool"/>
    </LoopInitiator>
    <Routine name="trial"/>
    <LoopTerminator name="trials"/>
  </Flow>
</PsychoPy2experiment>
`

// LegacyXML uses param names and value forms written by old versions of
// the format, plus a component type that is not registered.
const LegacyXML = `<?xml version="1.0" ?>
<PsychoPy2experiment encoding="utf-8" version="1.65.00">
  <Settings>
    <Param name="expName" updates="None" val="legacy" valType="str"/>
    <Param name="Window size (pixels)" updates="None" val="[800, 600]" valType="code"/>
  </Settings>
  <Routines>
    <Routine name="trial">
      <TextComponent name="stim">
        <Param name="times" updates="None" val="[1.0, 2.0]" valType="code"/>
        <Param name="colour" updates="constant" val="red" valType="str"/>
        <Param name="units" updates="None" val="window units" valType="str"/>
      </TextComponent>
      <KeyboardComponent name="key_resp">
        <Param name="allowedKeys" updates="None" val="ynq" valType="str"/>
        <Param name="correctIf" updates="None" val="resp.keys==str(corrAns)" valType="str"/>
        <Param name="forceEndTrial" updates="None" val="False" valType="bool"/>
        <Param name="storeResponseTime" updates="None" val="True" valType="bool"/>
      </KeyboardComponent>
      <EyeTrackerComponent name="tracker">
        <Param name="calibration" updates="None" val="9 point" valType="str"/>
      </EyeTrackerComponent>
    </Routine>
  </Routines>
  <Flow>
    <Routine name="trial"/>
    <Routine name="missing"/>
  </Flow>
</PsychoPy2experiment>
`
